package catalogimport

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/nilecart/internal/domain/product"
)

// DecodeProduct reads one catalog record:
//
//	{"id":"...","sellerId":"...","name":"...","description":"...","category":"...",
//	 "subcategory":"...","price":"12.50","imageUrl":"...","inStock":true}
//
// price may be a JSON number or a numeric string. inStock defaults to true.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	p := product.Product{InStock: true}
	var hasPrice bool
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "sellerId":
			p.SellerID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "subcategory":
			p.Subcategory, err = d.Str()
		case "imageUrl":
			p.ImageURL, err = d.Str()
		case "inStock":
			p.InStock, err = d.Bool()
		case "price":
			hasPrice = true
			p.Price, err = decodePrice(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return product.Product{}, err
	}
	switch {
	case p.ID == "":
		return product.Product{}, errors.New("missing id")
	case p.Name == "":
		return product.Product{}, errors.Errorf("%s: missing name", p.ID)
	case p.Category == "":
		return product.Product{}, errors.Errorf("%s: missing category", p.ID)
	case !hasPrice || p.Price.IsNegative():
		return product.Product{}, errors.Errorf("%s: missing or negative price", p.ID)
	}
	return p, nil
}

// DecodeProducts reads a JSON array of catalog records.
func DecodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "record %d", len(out))
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Decimal{}, errors.New("expected number")
	}
}

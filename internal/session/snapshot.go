package session

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/nilecart/internal/domain/cart"
)

// snapshotVersion is bumped when the stored layout changes.
const snapshotVersion = 1

// encodeSnapshot writes s as {"v":1,"items":[...]}. Prices are stored as
// decimal strings to survive the round trip exactly.
func encodeSnapshot(s cart.State) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("v", func(e *jx.Encoder) { e.Int(snapshotVersion) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range s.Lines() {
					encodeLine(e, l)
				}
			})
		})
	})
	return e.Bytes()
}

func encodeLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		if l.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(l.Description) })
		}
		e.Field("category", func(e *jx.Encoder) { e.Str(l.Category) })
		if l.Subcategory != "" {
			e.Field("subcategory", func(e *jx.Encoder) { e.Str(l.Subcategory) })
		}
		e.Field("price", func(e *jx.Encoder) { e.Str(l.Price.String()) })
		e.Field("image", func(e *jx.Encoder) { e.Str(l.Image) })
		e.Field("inStock", func(e *jx.Encoder) { e.Bool(l.InStock) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
	})
}

// decodeSnapshot parses data written by encodeSnapshot. Lines are replayed
// through the cart commands, so a damaged snapshot can never produce a
// State that violates the cart invariants.
func decodeSnapshot(data []byte) (cart.State, error) {
	var (
		version int
		lines   []cart.Line
	)
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "v":
			v, err := d.Int()
			if err != nil {
				return err
			}
			version = v
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				lines = append(lines, l)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return cart.State{}, errors.Wrap(err, "decode cart snapshot")
	}
	if version != snapshotVersion {
		return cart.State{}, errors.Errorf("unsupported cart snapshot version %d", version)
	}
	return cart.Replay(lines), nil
}

func decodeLine(d *jx.Decoder) (cart.Line, error) {
	var l cart.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			l.ID, err = d.Str()
		case "name":
			l.Name, err = d.Str()
		case "description":
			l.Description, err = d.Str()
		case "category":
			l.Category, err = d.Str()
		case "subcategory":
			l.Subcategory, err = d.Str()
		case "price":
			var s string
			if s, err = d.Str(); err == nil {
				l.Price, err = decimal.NewFromString(s)
			}
		case "image":
			l.Image, err = d.Str()
		case "inStock":
			l.InStock, err = d.Bool()
		case "quantity":
			l.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return l, err
}

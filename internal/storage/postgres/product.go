package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/nilecart/internal/domain/product"
)

var (
	_ product.Repository       = (*ProductRepository)(nil)
	_ product.SellerRepository = (*ProductRepository)(nil)
)

const productColumns = `id, seller_id, name, description, category, subcategory, price,
	image_url, in_stock, approved, created_at, updated_at`

// orderBy maps each sort to its ORDER BY clause. id breaks ties so paging is
// stable.
var orderBy = map[product.Sort]string{
	product.SortNewest:    "created_at DESC, id",
	product.SortOldest:    "created_at ASC, id",
	product.SortPriceLow:  "price ASC, id",
	product.SortPriceHigh: "price DESC, id",
	product.SortNameAsc:   "name ASC, id",
	product.SortNameDesc:  "name DESC, id",
}

// ProductRepository implements the catalog and listing repositories.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository that uses db.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Category, &p.Subcategory, &p.Price,
		&p.ImageURL, &p.InStock, &p.Approved, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]product.Product, error) {
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return out, nil
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildSearch renders the catalog query for a normalized filter.
func buildSearch(f product.Filter) (string, []any) {
	var (
		where = []string{"approved"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		n := arg("%" + escapeLike(f.Query) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR description ILIKE %[1]s)", n))
	}
	if f.Category != "" {
		where = append(where, "lower(category) = lower("+arg(f.Category)+")")
	}
	if f.Subcategory != "" {
		where = append(where, "lower(subcategory) = lower("+arg(f.Subcategory)+")")
	}
	if f.MinPrice != nil {
		where = append(where, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= "+arg(*f.MaxPrice))
	}

	order, ok := orderBy[f.Sort]
	if !ok {
		order = orderBy[product.SortNewest]
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products WHERE ")
	b.WriteString(strings.Join(where, " AND "))
	b.WriteString(" ORDER BY " + order)
	b.WriteString(" LIMIT " + arg(f.Limit))
	b.WriteString(" OFFSET " + arg(f.Offset))
	return b.String(), args
}

// Search returns approved products matching f.
func (r *ProductRepository) Search(ctx context.Context, f product.Filter) ([]product.Product, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	query, args := buildSearch(f)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return collectProducts(rows)
}

// GetByID returns an approved product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND approved", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Categories lists the categories of approved products with their
// subcategories, both sorted by name.
func (r *ProductRepository) Categories(ctx context.Context) ([]product.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT category, subcategory FROM products
		WHERE approved GROUP BY category, subcategory ORDER BY category, subcategory`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []product.Category
	for rows.Next() {
		var category, sub string
		if err := rows.Scan(&category, &sub); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Name != category {
			out = append(out, product.Category{Name: category})
		}
		if sub != "" {
			last := &out[len(out)-1]
			last.Subcategories = append(last.Subcategories, sub)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return out, nil
}

// ListBySeller returns all listings of sellerID, newest first.
func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID string) ([]product.Product, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE seller_id = $1 ORDER BY created_at DESC, id", sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing products of seller %q: %w", sellerID, err)
	}
	return collectProducts(rows)
}

// Create inserts a new listing.
func (r *ProductRepository) Create(ctx context.Context, p product.Product) error {
	_, err := r.db.Exec(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.SellerID, p.Name, p.Description, p.Category, p.Subcategory, p.Price,
		p.ImageURL, p.InStock, p.Approved, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Upsert inserts p or overwrites the stored row with the same ID. It is used
// by the seed and import tools, which own approval and timestamps.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.db.Exec(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			seller_id = EXCLUDED.seller_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			in_stock = EXCLUDED.in_stock,
			approved = EXCLUDED.approved,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.SellerID, p.Name, p.Description, p.Category, p.Subcategory, p.Price,
		p.ImageURL, p.InStock, p.Approved, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the editable fields of p.ID within scope.
func (r *ProductRepository) Update(ctx context.Context, scope product.Scope, p product.Product) (*product.Product, error) {
	updated, err := scanProduct(r.db.QueryRow(ctx, `UPDATE products SET
			name = $1, description = $2, category = $3, subcategory = $4, price = $5,
			image_url = $6, in_stock = $7, updated_at = $8
		WHERE id = $9 AND ($10::text = '' OR seller_id = $10)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Category, p.Subcategory, p.Price,
		p.ImageURL, p.InStock, p.UpdatedAt, p.ID, scope.SellerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	return &updated, nil
}

// Delete removes the listing id within scope.
func (r *ProductRepository) Delete(ctx context.Context, scope product.Scope, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND ($2::text = '' OR seller_id = $2)`, id, scope.SellerID)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// SetApproved sets the approval flag of id.
func (r *ProductRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET approved = $2, updated_at = now() WHERE id = $1`, id, approved)
	if err != nil {
		return fmt.Errorf("approving product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

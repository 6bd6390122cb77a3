package product

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/nilecart/internal/domain/auth"
)

type mockListings struct {
	created   []Product
	updated   []Product
	scopes    []Scope
	deleted   []string
	approved  []string
	notFound  bool
	err       error
	listedFor string
}

func (m *mockListings) ListBySeller(_ context.Context, sellerID string) ([]Product, error) {
	m.listedFor = sellerID
	return []Product{{ID: "p1", SellerID: sellerID}}, m.err
}

func (m *mockListings) Create(_ context.Context, p Product) error {
	m.created = append(m.created, p)
	return m.err
}

func (m *mockListings) Update(_ context.Context, scope Scope, p Product) (*Product, error) {
	m.updated = append(m.updated, p)
	m.scopes = append(m.scopes, scope)
	if m.notFound {
		return nil, errors.Wrap(ErrNotFound, "no rows")
	}
	if m.err != nil {
		return nil, m.err
	}
	p.SellerID = "s1"
	p.Approved = true
	return &p, nil
}

func (m *mockListings) Delete(_ context.Context, scope Scope, id string) error {
	m.scopes = append(m.scopes, scope)
	if m.notFound {
		return ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockListings) SetApproved(_ context.Context, id string, _ bool) error {
	if m.notFound {
		return ErrNotFound
	}
	m.approved = append(m.approved, id)
	return m.err
}

var (
	seller = auth.Identity{UserID: "s1", Role: auth.RoleSeller}
	admin  = auth.Identity{UserID: "a1", Role: auth.RoleAdmin}
	buyer  = auth.Identity{UserID: "b1", Role: auth.RoleBuyer}
)

func validDraft() Draft {
	return Draft{
		Name:        " Shea Butter ",
		Description: "Raw shea butter from Western Equatoria",
		Category:    "Beauty",
		Price:       decimal.RequireFromString("7.50"),
		InStock:     true,
	}
}

func newTestService(repo *mockListings) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.newID = func() string { return "generated-id" }
	return s
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name         string
		id           auth.Identity
		wantApproved bool
	}{
		{name: "seller listing starts unapproved", id: seller, wantApproved: false},
		{name: "admin listing is approved", id: admin, wantApproved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockListings{}
			svc := newTestService(repo)

			p, err := svc.Create(context.Background(), tt.id, validDraft())
			require.NoError(t, err)

			assert.Equal(t, "generated-id", p.ID)
			assert.Equal(t, tt.id.UserID, p.SellerID)
			assert.Equal(t, "Shea Butter", p.Name)
			assert.Equal(t, tt.wantApproved, p.Approved)
			assert.Equal(t, p.CreatedAt, p.UpdatedAt)
			require.Len(t, repo.created, 1)
			assert.Equal(t, *p, repo.created[0])
		})
	}
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Draft)
		field string
	}{
		{name: "missing name", edit: func(d *Draft) { d.Name = " " }, field: "name"},
		{name: "missing description", edit: func(d *Draft) { d.Description = "" }, field: "description"},
		{name: "missing category", edit: func(d *Draft) { d.Category = "" }, field: "category"},
		{name: "negative price", edit: func(d *Draft) { d.Price = decimal.NewFromInt(-1) }, field: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockListings{}
			d := validDraft()
			tt.edit(&d)

			_, err := newTestService(repo).Create(context.Background(), seller, d)

			var invalid *InvalidDraftError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
			assert.Empty(t, repo.created)
		})
	}
}

func TestService_RequiresSellerRole(t *testing.T) {
	repo := &mockListings{}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.List(ctx, buyer)
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.Create(ctx, auth.Anonymous, validDraft())
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.Update(ctx, buyer, "p1", validDraft())
	require.ErrorIs(t, err, auth.ErrForbidden)

	require.ErrorIs(t, svc.Delete(ctx, buyer, "p1"), auth.ErrForbidden)
	require.ErrorIs(t, svc.Approve(ctx, seller, "p1"), auth.ErrForbidden)

	assert.Empty(t, repo.created)
	assert.Empty(t, repo.scopes)
}

func TestService_UpdateScope(t *testing.T) {
	repo := &mockListings{}
	svc := newTestService(repo)

	p, err := svc.Update(context.Background(), seller, "p1", validDraft())
	require.NoError(t, err)
	assert.True(t, p.Approved, "stored approval flag is kept")

	_, err = svc.Update(context.Background(), admin, "p1", validDraft())
	require.NoError(t, err)

	assert.Equal(t, []Scope{{SellerID: "s1"}, {}}, repo.scopes)
	assert.Equal(t, "p1", repo.updated[0].ID)
}

func TestService_NotFound(t *testing.T) {
	repo := &mockListings{notFound: true}
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Update(ctx, seller, "other-sellers", validDraft())
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, seller, "missing"), ErrNotFound)
	require.ErrorIs(t, svc.Approve(ctx, admin, "missing"), ErrNotFound)
}

func TestService_RepositoryErrorsAreWrapped(t *testing.T) {
	repo := &mockListings{err: errors.New("connection reset")}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), seller, validDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create product")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestService_ListAndApprove(t *testing.T) {
	repo := &mockListings{}
	svc := newTestService(repo)

	got, err := svc.List(context.Background(), seller)
	require.NoError(t, err)
	assert.Equal(t, "s1", repo.listedFor)
	assert.Len(t, got, 1)

	require.NoError(t, svc.Approve(context.Background(), admin, "p9"))
	assert.Equal(t, []string{"p9"}, repo.approved)
}

func TestProduct_CartProduct(t *testing.T) {
	p := Product{
		ID: "p1", SellerID: "s1", Name: "Tea", Description: "Black tea", Category: "Groceries",
		Subcategory: "Drinks", Price: decimal.RequireFromString("2.5"), ImageURL: "tea.jpg", InStock: true,
	}

	cp := p.CartProduct()

	assert.Equal(t, "p1", cp.ID)
	assert.Equal(t, "tea.jpg", cp.Image)
	assert.Equal(t, "Drinks", cp.Subcategory)
	assert.True(t, cp.Price.Equal(p.Price))
	assert.True(t, cp.InStock)
}

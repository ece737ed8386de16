package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/trading-network/internal/model"
)

func newCatalog(now time.Time) (*Catalog, *MockProductStore) {
	store := new(MockProductStore)
	c := NewCatalog(store, zerolog.Nop(), 5)
	c.now = func() time.Time { return now }
	return c, store
}

func date(s string) *model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestCatalogCreate(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		c, store := newCatalog(today)
		store.On("Create", ctx, mock.MatchedBy(func(p *model.Product) bool {
			return p.Name == "Phone" && p.Model == "X1" && p.ReleaseDate.String() == "2024-05-10"
		})).Return(nil)

		p, err := c.Create(ctx, managerActor(), ProductInput{Name: ptr(" Phone "), Model: ptr("X1"), ReleaseDate: date("2024-05-10")})
		require.NoError(t, err)
		assert.Equal(t, "Phone", p.Name)
		store.AssertExpectations(t)
	})

	t.Run("FutureReleaseDate", func(t *testing.T) {
		c, _ := newCatalog(today)
		_, err := c.Create(ctx, managerActor(), ProductInput{Name: ptr("Phone"), Model: ptr("X1"), ReleaseDate: date("2024-05-11")})
		assert.Equal(t, msgFutureRelease, validationFields(t, err)["release_date"])
	})

	t.Run("MissingFields", func(t *testing.T) {
		c, _ := newCatalog(today)
		_, err := c.Create(ctx, managerActor(), ProductInput{Name: ptr("Phone")})
		fields := validationFields(t, err)
		assert.Equal(t, msgRequired, fields["model"])
		assert.Equal(t, msgRequired, fields["release_date"])
	})

	t.Run("MemberCannotWrite", func(t *testing.T) {
		c, _ := newCatalog(today)
		_, err := c.Create(ctx, memberActor(1), ProductInput{})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCatalogUpdatePartial(t *testing.T) {
	ctx := context.Background()
	c, store := newCatalog(time.Now())

	store.On("GetByID", ctx, uint64(3)).Return(&model.Product{ID: 3, Name: "Old", Model: "M"}, nil)
	store.On("Update", ctx, mock.MatchedBy(func(p *model.Product) bool {
		return p.Name == "New" && p.Model == "M"
	})).Return(nil)

	p, err := c.Update(ctx, managerActor(), 3, ProductInput{Name: ptr("New")}, true)
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)

	store.On("GetByID", ctx, uint64(4)).Return(nil, ErrNotFound)
	_, err = c.Update(ctx, managerActor(), 4, ProductInput{Name: ptr("New")}, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogReadsForMembers(t *testing.T) {
	ctx := context.Background()
	c, store := newCatalog(time.Now())

	store.On("List", ctx, model.ProductFilter{Search: "pho", Ordering: "-release_date", Limit: 5, Offset: 0}).
		Return([]model.Product{{ID: 1}}, 1, nil)
	page, err := c.List(ctx, memberActor(1), ProductQuery{Search: "pho", Ordering: "-release_date", Page: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	store.On("GetByID", ctx, uint64(1)).Return(&model.Product{ID: 1}, nil)
	_, err = c.Get(ctx, memberActor(1), 1)
	assert.NoError(t, err)

	assert.ErrorIs(t, c.Delete(ctx, memberActor(1), 1), ErrForbidden)
	store.On("Delete", ctx, uint64(1)).Return(nil)
	assert.NoError(t, c.Delete(ctx, managerActor(), 1))
}

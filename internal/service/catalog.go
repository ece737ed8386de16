package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
)

// ProductStore is the persistence the catalog needs.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error)
}

// ProductQuery carries the list parameters of the product collection.
type ProductQuery struct {
	Search   string
	Ordering string
	Page     int
}

const msgFutureRelease = "Release date cannot be in the future."

// Catalog manages the products nodes can carry.
type Catalog struct {
	products  ProductStore
	logger    zerolog.Logger
	validator *validator.Validate
	pageSize  int
	now       func() time.Time
}

func NewCatalog(products ProductStore, logger zerolog.Logger, pageSize int) *Catalog {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Catalog{
		products:  products,
		logger:    logger.With().Str("component", "catalog").Logger(),
		validator: newValidator(),
		pageSize:  pageSize,
		now:       time.Now,
	}
}

func (c *Catalog) Create(ctx context.Context, a *policy.Actor, in ProductInput) (*model.Product, error) {
	if !policy.CanProduct(a, policy.OpWrite) {
		return nil, ErrForbidden
	}
	if err := c.check(in, false); err != nil {
		return nil, err
	}
	p := &model.Product{}
	in.apply(p)
	if err := c.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	c.logger.Info().Uint64("product_id", p.ID).Uint64("actor_id", a.UserID).Msg("product created")
	return p, nil
}

func (c *Catalog) Get(ctx context.Context, a *policy.Actor, id uint64) (*model.Product, error) {
	if !policy.CanProduct(a, policy.OpRead) {
		return nil, ErrForbidden
	}
	return c.products.GetByID(ctx, id)
}

// Update applies a full or partial write to a product.
func (c *Catalog) Update(ctx context.Context, a *policy.Actor, id uint64, in ProductInput, partial bool) (*model.Product, error) {
	if !policy.CanProduct(a, policy.OpWrite) {
		return nil, ErrForbidden
	}
	if err := c.check(in, partial); err != nil {
		return nil, err
	}
	p, err := c.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := c.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (c *Catalog) Delete(ctx context.Context, a *policy.Actor, id uint64) error {
	if !policy.CanProduct(a, policy.OpDelete) {
		return ErrForbidden
	}
	if err := c.products.Delete(ctx, id); err != nil {
		return err
	}
	c.logger.Info().Uint64("product_id", id).Uint64("actor_id", a.UserID).Msg("product deleted")
	return nil
}

func (c *Catalog) List(ctx context.Context, a *policy.Actor, q ProductQuery) (Page[model.Product], error) {
	if !policy.CanProduct(a, policy.OpList) {
		return Page[model.Product]{}, ErrForbidden
	}
	limit, offset, err := window(q.Page, c.pageSize)
	if err != nil {
		return Page[model.Product]{}, err
	}
	items, total, err := c.products.List(ctx, model.ProductFilter{
		Search:   q.Search,
		Ordering: q.Ordering,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return Page[model.Product]{}, fmt.Errorf("list products: %w", err)
	}
	if err := checkPage(q.Page, limit, total); err != nil {
		return Page[model.Product]{}, err
	}
	return Page[model.Product]{Items: items, Count: total, Number: q.Page, PageSize: limit}, nil
}

func (c *Catalog) check(in ProductInput, partial bool) error {
	for _, s := range []*string{in.Name, in.Model} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	ve := &ValidationError{}
	if !partial {
		if in.Name == nil {
			ve.Add("name", msgRequired)
		}
		if in.Model == nil {
			ve.Add("model", msgRequired)
		}
		if in.ReleaseDate == nil || in.ReleaseDate.IsZero() {
			ve.Add("release_date", msgRequired)
		}
	}
	if in.ReleaseDate != nil && !in.ReleaseDate.IsZero() && in.ReleaseDate.After(model.NewDate(c.now())) {
		ve.Add("release_date", msgFutureRelease)
	}
	if err := collect(ve, c.validator.Struct(in)); err != nil {
		return err
	}
	return ve.OrNil()
}

func (in ProductInput) apply(p *model.Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Model != nil {
		p.Model = *in.Model
	}
	if in.ReleaseDate != nil && !in.ReleaseDate.IsZero() {
		p.ReleaseDate = *in.ReleaseDate
	}
}

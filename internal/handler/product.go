package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trading-network/internal/middleware"
	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
	"github.com/iliyamo/trading-network/internal/service"
)

// ProductService is the catalog behaviour the product endpoints need.
type ProductService interface {
	Create(ctx context.Context, a *policy.Actor, in service.ProductInput) (*model.Product, error)
	Get(ctx context.Context, a *policy.Actor, id uint64) (*model.Product, error)
	Update(ctx context.Context, a *policy.Actor, id uint64, in service.ProductInput, partial bool) (*model.Product, error)
	Delete(ctx context.Context, a *policy.Actor, id uint64) error
	List(ctx context.Context, a *policy.Actor, q service.ProductQuery) (service.Page[model.Product], error)
}

// ProductHandler serves /trading/api/products/.
type ProductHandler struct {
	Products ProductService
}

func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{Products: products}
}

func (h *ProductHandler) List(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.List(ctx, middleware.Actor(c), service.ProductQuery{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Ordering: strings.TrimSpace(c.QueryParam("ordering")),
		Page:     page,
	})
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, p, same[model.Product])
}

func (h *ProductHandler) Create(c echo.Context) error {
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.Create(ctx, middleware.Actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.Get(ctx, middleware.Actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Replace(c echo.Context) error { return h.update(c, false) }
func (h *ProductHandler) Patch(c echo.Context) error   { return h.update(c, true) }

func (h *ProductHandler) update(c echo.Context, partial bool) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Products.Update(ctx, middleware.Actor(c), id, in, partial)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Products.Delete(ctx, middleware.Actor(c), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trading-network/internal/metrics"
	"github.com/iliyamo/trading-network/internal/middleware"
	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
	"github.com/iliyamo/trading-network/internal/service"
)

// NodeService is the directory behaviour the node endpoints need.
type NodeService interface {
	Create(ctx context.Context, a *policy.Actor, in service.NodeInput) (*model.NetworkNode, error)
	Get(ctx context.Context, a *policy.Actor, id uint64) (*model.NetworkNode, error)
	Update(ctx context.Context, a *policy.Actor, id uint64, in service.NodeInput, partial bool) (*model.NetworkNode, error)
	Delete(ctx context.Context, a *policy.Actor, id uint64) error
	List(ctx context.Context, a *policy.Actor, q service.NodeQuery) (service.Page[model.NetworkNode], error)
}

// NodeHandler serves /trading/api/network-nodes/.
type NodeHandler struct {
	Nodes NodeService
}

func NewNodeHandler(nodes NodeService) *NodeHandler {
	return &NodeHandler{Nodes: nodes}
}

// List handles GET /trading/api/network-nodes/.
func (h *NodeHandler) List(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return fail(c, err)
	}
	q := service.NodeQuery{
		Country:     strings.TrimSpace(c.QueryParam("country")),
		City:        strings.TrimSpace(c.QueryParam("city")),
		ProductName: strings.TrimSpace(c.QueryParam("product_name")),
		Search:      strings.TrimSpace(c.QueryParam("search")),
		Ordering:    strings.TrimSpace(c.QueryParam("ordering")),
		Page:        page,
	}
	if raw := strings.TrimSpace(c.QueryParam("level")); raw != "" {
		lvl, err := strconv.Atoi(raw)
		if err != nil {
			return fail(c, &service.ValidationError{Fields: map[string]string{"level": "Enter a whole number."}})
		}
		q.Level = &lvl
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Nodes.List(ctx, middleware.Actor(c), q)
	if err != nil {
		return fail(c, err)
	}
	return paginated(c, p, same[model.NetworkNode])
}

// Create handles POST /trading/api/network-nodes/.
func (h *NodeHandler) Create(c echo.Context) error {
	var in service.NodeInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Nodes.Create(ctx, middleware.Actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	metrics.NodeWrites.WithLabelValues("create").Inc()
	return c.JSON(http.StatusCreated, n)
}

// Get handles GET /trading/api/network-nodes/:id/.
func (h *NodeHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Nodes.Get(ctx, middleware.Actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// Replace handles PUT; every contact field must be sent.
func (h *NodeHandler) Replace(c echo.Context) error { return h.update(c, false) }

// Patch handles PATCH; omitted fields keep their value.
func (h *NodeHandler) Patch(c echo.Context) error { return h.update(c, true) }

func (h *NodeHandler) update(c echo.Context, partial bool) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var in service.NodeInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Nodes.Update(ctx, middleware.Actor(c), id, in, partial)
	if err != nil {
		return fail(c, err)
	}
	metrics.NodeWrites.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, n)
}

// Delete handles DELETE /trading/api/network-nodes/:id/.
func (h *NodeHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Nodes.Delete(ctx, middleware.Actor(c), id); err != nil {
		return fail(c, err)
	}
	metrics.NodeWrites.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

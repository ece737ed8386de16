package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
)

// NodeStore is the persistence the directory needs.
type NodeStore interface {
	Create(ctx context.Context, n *model.NetworkNode) error
	GetByID(ctx context.Context, id uint64) (*model.NetworkNode, error)
	GetRef(ctx context.Context, id uint64) (model.NodeRef, error)
	ListChildren(ctx context.Context, supplierID uint64) ([]model.NodeRef, error)
	Update(ctx context.Context, n *model.NetworkNode, relevel []model.LevelChange) error
	Delete(ctx context.Context, id uint64, relevel []model.LevelChange) error
	List(ctx context.Context, f model.NodeFilter) ([]model.NetworkNode, int, error)
	ClearDebt(ctx context.Context, ids []uint64) (int64, error)
}

// ProductLookup resolves product ids for node catalogs.
type ProductLookup interface {
	GetMany(ctx context.Context, ids []uint64) ([]model.Product, error)
}

// NodeQuery carries the list parameters of the node collection.
type NodeQuery struct {
	Country     string
	City        string
	Level       *int
	ProductName string
	Search      string
	Ordering    string
	Page        int
}

const (
	msgDebtReadOnly   = "Debt cannot be set through the API."
	msgLevel          = "Level must be 0, 1 or 2."
	msgSupplierLevel2 = "A level 2 node cannot be a supplier."
	msgSupplierSelf   = "A node cannot be its own supplier."
	msgSupplierCycle  = "Supplier chain would form a cycle."
	msgSubtreeTooDeep = "Moving this node would place a supplier at level 2."
	msgSupplierMoved  = "Supplier changed while saving, please retry."
)

// Directory owns the trading network hierarchy: node writes, the level
// rules and the organization-scoped reads.
type Directory struct {
	nodes     NodeStore
	products  ProductLookup
	logger    zerolog.Logger
	validator *validator.Validate
	pageSize  int
}

func NewDirectory(nodes NodeStore, products ProductLookup, logger zerolog.Logger, pageSize int) *Directory {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Directory{
		nodes:     nodes,
		products:  products,
		logger:    logger.With().Str("component", "directory").Logger(),
		validator: newValidator(),
		pageSize:  pageSize,
	}
}

// Create validates and stores a new node.  Its level is derived from the
// supplier and its debt starts at zero.
func (d *Directory) Create(ctx context.Context, a *policy.Actor, in NodeInput) (*model.NetworkNode, error) {
	if !policy.CanNode(a, policy.OpWrite, 0) {
		return nil, ErrForbidden
	}
	in.trim()
	ve := &ValidationError{}
	if in.HasDebt() {
		ve.Add("debt", msgDebtReadOnly)
	}
	in.missing(ve)
	if err := d.check(ve, in); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	n := &model.NetworkNode{SupplierID: in.Supplier.Value}
	in.apply(n)

	level, err := d.supplierLevel(ctx, 0, n.SupplierID)
	if err != nil {
		return nil, err
	}
	n.Level = level
	if err := d.attachProducts(ctx, n, in.Products); err != nil {
		return nil, err
	}
	if err := d.nodes.Create(ctx, n); err != nil {
		if errors.Is(err, ErrHierarchyChanged) {
			return nil, invalid("supplier", msgSupplierMoved)
		}
		return nil, fmt.Errorf("create node: %w", err)
	}
	d.logger.Info().Uint64("node_id", n.ID).Int("level", n.Level).Uint64("actor_id", a.UserID).Msg("node created")
	return n, nil
}

// Get returns a node the actor may read.  The policy is consulted before
// the lookup so foreign ids answer Forbidden whether or not they exist.
func (d *Directory) Get(ctx context.Context, a *policy.Actor, id uint64) (*model.NetworkNode, error) {
	if !policy.CanNode(a, policy.OpRead, id) {
		return nil, ErrForbidden
	}
	return d.nodes.GetByID(ctx, id)
}

// Update applies a full (partial == false) or partial write.  Debt in the
// body is dropped.  A supplier change re-derives the node's level and the
// levels of its whole subtree in the same transaction.
func (d *Directory) Update(ctx context.Context, a *policy.Actor, id uint64, in NodeInput, partial bool) (*model.NetworkNode, error) {
	if !policy.CanNode(a, policy.OpWrite, id) {
		return nil, ErrForbidden
	}
	in.trim()
	if in.HasDebt() {
		d.logger.Debug().Uint64("node_id", id).Msg("debt stripped from update")
		in.Debt = nil
	}
	ve := &ValidationError{}
	if !partial {
		in.missing(ve)
	}
	if err := d.check(ve, in); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	n, err := d.nodes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(n)

	var relevel []model.LevelChange
	if in.Supplier.Set && !sameID(in.Supplier.Value, n.SupplierID) {
		level, err := d.supplierLevel(ctx, id, in.Supplier.Value)
		if err != nil {
			return nil, err
		}
		relevel, err = d.subtreeLevels(ctx, id, level)
		if err != nil {
			return nil, err
		}
		n.SupplierID = in.Supplier.Value
		n.Level = level
	}
	if in.Products != nil {
		if err := d.attachProducts(ctx, n, in.Products); err != nil {
			return nil, err
		}
	}
	if err := d.nodes.Update(ctx, n, relevel); err != nil {
		if errors.Is(err, ErrHierarchyChanged) {
			return nil, invalid("supplier", msgSupplierMoved)
		}
		return nil, fmt.Errorf("update node: %w", err)
	}
	d.logger.Info().Uint64("node_id", id).Int("level", n.Level).Int("releveled", len(relevel)).
		Uint64("actor_id", a.UserID).Msg("node updated")
	return d.nodes.GetByID(ctx, id)
}

// Delete removes a node and detaches its children, which become factories
// with their subtrees re-leveled.
func (d *Directory) Delete(ctx context.Context, a *policy.Actor, id uint64) error {
	if !policy.CanNode(a, policy.OpDelete, id) {
		return ErrForbidden
	}
	if _, err := d.nodes.GetRef(ctx, id); err != nil {
		return err
	}
	children, err := d.nodes.ListChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("list children: %w", err)
	}
	var relevel []model.LevelChange
	for _, child := range children {
		changes, err := d.subtreeLevels(ctx, child.ID, model.LevelFactory)
		if err != nil {
			return err
		}
		relevel = append(relevel, model.LevelChange{NodeID: child.ID, Level: model.LevelFactory})
		relevel = append(relevel, changes...)
	}
	if err := d.nodes.Delete(ctx, id, relevel); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	d.logger.Info().Uint64("node_id", id).Int("detached", len(children)).Uint64("actor_id", a.UserID).Msg("node deleted")
	return nil
}

// List returns one page of the nodes visible to the actor.
func (d *Directory) List(ctx context.Context, a *policy.Actor, q NodeQuery) (Page[model.NetworkNode], error) {
	if q.Level != nil && !model.ValidLevel(*q.Level) {
		return Page[model.NetworkNode]{}, invalid("level", msgLevel)
	}
	limit, offset, err := window(q.Page, d.pageSize)
	if err != nil {
		return Page[model.NetworkNode]{}, err
	}
	items, total, err := d.nodes.List(ctx, model.NodeFilter{
		Scope:       policy.Nodes(a),
		Country:     q.Country,
		City:        q.City,
		Level:       q.Level,
		ProductName: q.ProductName,
		Search:      q.Search,
		Ordering:    q.Ordering,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return Page[model.NetworkNode]{}, fmt.Errorf("list nodes: %w", err)
	}
	if err := checkPage(q.Page, limit, total); err != nil {
		return Page[model.NetworkNode]{}, err
	}
	return Page[model.NetworkNode]{Items: items, Count: total, Number: q.Page, PageSize: limit}, nil
}

// ClearDebt zeroes the debt of the listed nodes.  It is an administrative
// operation without an actor and is not reachable over HTTP.
func (d *Directory) ClearDebt(ctx context.Context, ids []uint64) (int64, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, invalid("ids", msgRequired)
	}
	n, err := d.nodes.ClearDebt(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("clear debt: %w", err)
	}
	d.logger.Info().Int64("cleared", n).Msg("debt cleared")
	return n, nil
}

func (d *Directory) check(ve *ValidationError, in NodeInput) error {
	if in.Level != nil && !model.ValidLevel(*in.Level) {
		ve.Add("level", msgLevel)
	}
	return collect(ve, d.validator.Struct(in))
}

// supplierLevel validates a prospective supplier for node id (zero while
// creating) and returns the level the node would get under it.
func (d *Directory) supplierLevel(ctx context.Context, id uint64, supplierID *uint64) (int, error) {
	if supplierID == nil {
		return model.DeriveLevel(nil), nil
	}
	if id != 0 && *supplierID == id {
		return 0, invalid("supplier", msgSupplierSelf)
	}
	ref, err := d.nodes.GetRef(ctx, *supplierID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, invalid("supplier", msgDoesNotExist)
		}
		return 0, fmt.Errorf("load supplier: %w", err)
	}
	if ref.Level >= model.MaxLevel {
		return 0, invalid("supplier", msgSupplierLevel2)
	}
	if id != 0 {
		if err := d.checkAcyclic(ctx, id, ref); err != nil {
			return 0, err
		}
	}
	return model.DeriveLevel(&ref.Level), nil
}

// checkAcyclic walks supplier pointers upward from the new supplier and
// fails if the walk reaches the node being written.
func (d *Directory) checkAcyclic(ctx context.Context, id uint64, from model.NodeRef) error {
	seen := map[uint64]struct{}{}
	cur := from
	for {
		if cur.ID == id {
			return invalid("supplier", msgSupplierCycle)
		}
		if _, ok := seen[cur.ID]; ok {
			return invalid("supplier", msgSupplierCycle)
		}
		seen[cur.ID] = struct{}{}
		if cur.SupplierID == nil {
			return nil
		}
		next, err := d.nodes.GetRef(ctx, *cur.SupplierID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return fmt.Errorf("walk suppliers: %w", err)
		}
		cur = next
	}
}

// subtreeLevels computes the new levels of every descendant of root when
// root moves to rootLevel.  No descendant may end up deeper than MaxLevel,
// which is the same as saying no level 2 node may keep children.
func (d *Directory) subtreeLevels(ctx context.Context, root uint64, rootLevel int) ([]model.LevelChange, error) {
	var changes []model.LevelChange
	type item struct {
		id    uint64
		level int
	}
	queue := []item{{root, rootLevel}}
	seen := map[uint64]struct{}{root: {}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, err := d.nodes.ListChildren(ctx, cur.id)
		if err != nil {
			return nil, fmt.Errorf("list children: %w", err)
		}
		for _, child := range children {
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			level := cur.level + 1
			if level > model.MaxLevel {
				return nil, invalid("supplier", msgSubtreeTooDeep)
			}
			if level != child.Level {
				changes = append(changes, model.LevelChange{NodeID: child.ID, Level: level})
			}
			queue = append(queue, item{child.ID, level})
		}
	}
	return changes, nil
}

// attachProducts resolves the product ids onto n, rejecting unknown ids.
func (d *Directory) attachProducts(ctx context.Context, n *model.NetworkNode, ids *[]uint64) error {
	n.Products = []model.Product{}
	if ids == nil || len(*ids) == 0 {
		return nil
	}
	want := dedupe(*ids)
	found, err := d.products.GetMany(ctx, want)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	if len(found) != len(want) {
		return invalid("products", msgDoesNotExist)
	}
	n.Products = found
	return nil
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Package fixtures seeds a database with products and network nodes from
// a JSON document.  Entries reference each other by key, and every write
// goes through the same services as the API so the hierarchy rules hold.
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/trading-network/internal/model"
	"github.com/iliyamo/trading-network/internal/policy"
	"github.com/iliyamo/trading-network/internal/service"
)

// File is the fixture document.  Nodes must come after their suppliers.
type File struct {
	Products []Product `json:"products"`
	Nodes    []Node    `json:"nodes"`
}

type Product struct {
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Model       string     `json:"model"`
	ReleaseDate model.Date `json:"release_date"`
}

type Node struct {
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Country     string           `json:"country"`
	City        string           `json:"city"`
	Street      string           `json:"street"`
	HouseNumber string           `json:"house_number"`
	Supplier    string           `json:"supplier"`
	Products    []string         `json:"products"`
	Debt        *decimal.Decimal `json:"debt"`
}

type ProductCreator interface {
	Create(ctx context.Context, a *policy.Actor, in service.ProductInput) (*model.Product, error)
}

type NodeCreator interface {
	Create(ctx context.Context, a *policy.Actor, in service.NodeInput) (*model.NetworkNode, error)
}

// DebtSetter writes a debt directly.  The API never does; fixtures may.
type DebtSetter interface {
	SetDebt(ctx context.Context, id uint64, debt decimal.Decimal) error
}

// Loader applies fixture files.
type Loader struct {
	Products ProductCreator
	Nodes    NodeCreator
	Debts    DebtSetter
	Logger   zerolog.Logger
}

// Result reports how many rows were created.
type Result struct {
	Products int
	Nodes    int
}

// Load decodes a fixture document from r and creates its contents.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Result, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Result{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return l.Apply(ctx, f)
}

// Apply creates products first, then nodes in document order.
func (l *Loader) Apply(ctx context.Context, f File) (Result, error) {
	var res Result
	actor := policy.SystemActor()
	products := map[string]uint64{}
	nodes := map[string]uint64{}

	for _, p := range f.Products {
		if _, dup := products[p.Key]; dup || p.Key == "" {
			return res, fmt.Errorf("product %q: key missing or repeated", p.Key)
		}
		release := p.ReleaseDate
		created, err := l.Products.Create(ctx, actor, service.ProductInput{Name: &p.Name, Model: &p.Model, ReleaseDate: &release})
		if err != nil {
			return res, fmt.Errorf("product %q: %w", p.Key, err)
		}
		products[p.Key] = created.ID
		res.Products++
	}

	for _, n := range f.Nodes {
		if _, dup := nodes[n.Key]; dup || n.Key == "" {
			return res, fmt.Errorf("node %q: key missing or repeated", n.Key)
		}
		if n.Debt != nil && n.Debt.IsNegative() {
			return res, fmt.Errorf("node %q: debt cannot be negative", n.Key)
		}
		in := service.NodeInput{
			Name:        &n.Name,
			Email:       &n.Email,
			Country:     &n.Country,
			City:        &n.City,
			Street:      &n.Street,
			HouseNumber: &n.HouseNumber,
		}
		if n.Supplier != "" {
			id, ok := nodes[n.Supplier]
			if !ok {
				return res, fmt.Errorf("node %q: unknown supplier %q", n.Key, n.Supplier)
			}
			in.Supplier = service.OptionalID{Set: true, Value: &id}
		}
		ids := make([]uint64, 0, len(n.Products))
		for _, k := range n.Products {
			id, ok := products[k]
			if !ok {
				return res, fmt.Errorf("node %q: unknown product %q", n.Key, k)
			}
			ids = append(ids, id)
		}
		in.Products = &ids

		created, err := l.Nodes.Create(ctx, actor, in)
		if err != nil {
			return res, fmt.Errorf("node %q: %w", n.Key, err)
		}
		nodes[n.Key] = created.ID
		res.Nodes++

		if n.Debt != nil && !n.Debt.IsZero() {
			if err := l.Debts.SetDebt(ctx, created.ID, *n.Debt); err != nil {
				return res, fmt.Errorf("node %q debt: %w", n.Key, err)
			}
		}
		l.Logger.Debug().Str("key", n.Key).Uint64("id", created.ID).Int("level", created.Level).Msg("node loaded")
	}
	return res, nil
}

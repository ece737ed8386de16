package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hierarchy levels of the trading network.  A node without a supplier is a
// factory; every hop down the supplier chain adds one level up to MaxLevel.
const (
	LevelFactory     = 0
	LevelRetailChain = 1
	LevelReseller    = 2

	MaxLevel = LevelReseller
)

var levelLabels = map[int]string{
	LevelFactory:     "Factory",
	LevelRetailChain: "Retail chain",
	LevelReseller:    "Individual entrepreneur",
}

// LevelLabel returns the human readable name of a hierarchy level.
func LevelLabel(level int) string {
	return levelLabels[level]
}

// ValidLevel reports whether level is one of the three hierarchy levels.
func ValidLevel(level int) bool {
	return level >= LevelFactory && level <= MaxLevel
}

// DeriveLevel computes the level of a node from its supplier's level.  A nil
// supplier level means the node has no supplier.  Results above MaxLevel are
// clamped.
func DeriveLevel(supplierLevel *int) int {
	if supplierLevel == nil {
		return LevelFactory
	}
	level := *supplierLevel + 1
	if level > MaxLevel {
		level = MaxLevel
	}
	return level
}

// NetworkNode represents a row in the `network_nodes` table together with
// the products linked through `network_node_products`.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name of the organization.
//	Level        – derived hierarchy level (0..2), never client-settable.
//	Email        – contact email.
//	Country      – contact country.
//	City         – contact city.
//	Street       – contact street.
//	HouseNumber  – contact house number.
//	SupplierID   – supplier node (nil for factories).
//	SupplierName – supplier display name, filled on reads.
//	Debt         – amount owed to the supplier, read-only through the API.
//	CreatedAt    – creation timestamp.
//	Products     – catalog items carried by the node.
type NetworkNode struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	Level        int             `json:"level"`
	LevelDisplay string          `json:"level_display"`
	Email        string          `json:"email"`
	Country      string          `json:"country"`
	City         string          `json:"city"`
	Street       string          `json:"street"`
	HouseNumber  string          `json:"house_number"`
	Products     []Product       `json:"products"`
	SupplierID   *uint64         `json:"supplier"`
	SupplierName *string         `json:"supplier_name"`
	Debt         decimal.Decimal `json:"debt"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProductIDs returns the ids of the node's products in order.
func (n *NetworkNode) ProductIDs() []uint64 {
	ids := make([]uint64, 0, len(n.Products))
	for _, p := range n.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

// NodeRef is the slice of a node the hierarchy rules need.
type NodeRef struct {
	ID         uint64
	Level      int
	SupplierID *uint64
}

// LevelChange records a new level for a descendant whose ancestor moved in
// the hierarchy.
type LevelChange struct {
	NodeID uint64
	Level  int
}

// NodeScope narrows a node query to the rows an actor may see.  With All
// set there is no restriction; otherwise only NodeID is visible, and None
// matches nothing at all.
type NodeScope struct {
	All    bool
	None   bool
	NodeID uint64
}

// NodeFilter carries the list parameters accepted by the node collection.
type NodeFilter struct {
	Scope       NodeScope
	Country     string
	City        string
	Level       *int
	ProductName string
	Search      string
	Ordering    string
	Limit       int
	Offset      int
}

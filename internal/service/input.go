package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/iliyamo/trading-network/internal/model"
)

// OptionalID distinguishes a key that was omitted from one explicitly set to
// null.  Set is true whenever the key appeared in the body.
type OptionalID struct {
	Set   bool
	Value *uint64
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uint64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// NodeInput is the writable shape of a network node.  Nil fields were not
// sent.  Debt is captured raw only so its presence can be detected.
type NodeInput struct {
	Name        *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Email       *string         `json:"email" validate:"omitempty,email,max=254"`
	Country     *string         `json:"country" validate:"omitempty,min=1,max=100"`
	City        *string         `json:"city" validate:"omitempty,min=1,max=100"`
	Street      *string         `json:"street" validate:"omitempty,min=1,max=200"`
	HouseNumber *string         `json:"house_number" validate:"omitempty,min=1,max=20"`
	Level       *int            `json:"level"`
	Supplier    OptionalID      `json:"supplier"`
	Products    *[]uint64       `json:"products"`
	Debt        json.RawMessage `json:"debt"`
}

// HasDebt reports whether the client sent a debt value.
func (in NodeInput) HasDebt() bool { return len(in.Debt) > 0 }

// missing lists the contact fields a full write must carry.
func (in NodeInput) missing(ve *ValidationError) {
	required := map[string]*string{
		"name":         in.Name,
		"email":        in.Email,
		"country":      in.Country,
		"city":         in.City,
		"street":       in.Street,
		"house_number": in.HouseNumber,
	}
	for field, v := range required {
		if v == nil {
			ve.Add(field, msgRequired)
		}
	}
}

func (in *NodeInput) trim() {
	for _, p := range []*string{in.Name, in.Email, in.Country, in.City, in.Street, in.HouseNumber} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

// apply copies the sent contact fields onto n.
func (in NodeInput) apply(n *model.NetworkNode) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&n.Name, in.Name)
	set(&n.Email, in.Email)
	set(&n.Country, in.Country)
	set(&n.City, in.City)
	set(&n.Street, in.Street)
	set(&n.HouseNumber, in.HouseNumber)
}

// ProductInput is the writable shape of a product.
type ProductInput struct {
	Name        *string     `json:"name" validate:"omitempty,min=1,max=200"`
	Model       *string     `json:"model" validate:"omitempty,min=1,max=100"`
	ReleaseDate *model.Date `json:"release_date"`
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package model

// Product represents a row in the `products` table.  Products are shared by
// any number of network nodes and belong to none of them.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – product name.
//	Model       – model identifier.
//	ReleaseDate – market release date, never in the future.
type Product struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Model       string `json:"model"`
	ReleaseDate Date   `json:"release_date"`
}

// ProductFilter carries the list parameters accepted by the product collection.
type ProductFilter struct {
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

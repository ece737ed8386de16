package service

import (
	"fmt"
	"math"
)

// DefaultPageSize is the number of results per page when none is configured.
const DefaultPageSize = 5

// ErrInvalidPage is returned for page numbers outside the result set.
var ErrInvalidPage = fmt.Errorf("invalid page: %w", ErrNotFound)

// Page is one window of a paginated listing.
type Page[T any] struct {
	Items    []T
	Count    int
	Number   int
	PageSize int
}

func (p Page[T]) HasNext() bool     { return p.Number*p.PageSize < p.Count }
func (p Page[T]) HasPrevious() bool { return p.Number > 1 }

// window converts a 1-based page number into limit and offset.
func window(number, size int) (int, int, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	// Offsets past MaxInt would wrap negative.
	if number < 1 || number-1 > math.MaxInt/size {
		return 0, 0, ErrInvalidPage
	}
	return size, (number - 1) * size, nil
}

// checkPage rejects pages past the end.  The first page is always valid,
// even when empty.
func checkPage(number, size, total int) error {
	if number > 1 && (size <= 0 || number-1 >= (total+size-1)/size) {
		return ErrInvalidPage
	}
	return nil
}

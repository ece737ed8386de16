package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	limit, offset, err := window(3, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10, offset)

	_, _, err = window(0, 5)
	assert.ErrorIs(t, err, ErrInvalidPage)

	// Huge page numbers must not wrap the offset negative.
	_, _, err = window(math.MaxInt/5+2, 5)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, _, err = window(math.MaxInt, 5)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, offset, err = window(math.MaxInt/5+1, 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, offset, 0)
}

func TestCheckPage(t *testing.T) {
	assert.NoError(t, checkPage(1, 5, 0))
	assert.NoError(t, checkPage(2, 5, 6))
	assert.NoError(t, checkPage(3, 5, 11))
	assert.ErrorIs(t, checkPage(3, 5, 10), ErrInvalidPage)
	assert.ErrorIs(t, checkPage(2, 5, 0), ErrInvalidPage)
	assert.ErrorIs(t, checkPage(math.MaxInt, 5, 10), ErrInvalidPage)
}

func TestDirectoryList_HugePageIsInvalid(t *testing.T) {
	d, nodes, _ := newDirectory()
	_, err := d.List(context.Background(), managerActor(), NodeQuery{Page: math.MaxInt/5 + 2})
	assert.ErrorIs(t, err, ErrInvalidPage)
	nodes.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

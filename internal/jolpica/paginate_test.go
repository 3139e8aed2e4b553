package jolpica

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource simulates a paginated upstream with fixed page sizes.
type pagedSource struct {
	pages [][]int
	calls int
}

func (s *pagedSource) fetch(_ context.Context, offset int) ([]int, error) {
	s.calls++

	page := offset / 30
	if page >= len(s.pages) {
		return nil, nil
	}

	return s.pages[page], nil
}

func makePage(size int) []int {
	page := make([]int, size)
	for i := range page {
		page[i] = i
	}

	return page
}

func TestFetchAllPages_ShortFinalPageTerminates(t *testing.T) {
	src := &pagedSource{pages: [][]int{makePage(30), makePage(30), makePage(12)}}

	items, err := FetchAllPages(context.Background(), 30, nil, src.fetch)

	require.NoError(t, err)
	assert.Len(t, items, 72)
	assert.Equal(t, 3, src.calls)
}

func TestFetchAllPages_EmptyFirstPage(t *testing.T) {
	src := &pagedSource{pages: nil}

	items, err := FetchAllPages(context.Background(), 30, nil, src.fetch)

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, src.calls)
}

func TestFetchAllPages_ExactMultipleNeedsEmptyPage(t *testing.T) {
	// Two full pages: the loop cannot know page two was the last until a
	// third, empty page confirms it.
	src := &pagedSource{pages: [][]int{makePage(30), makePage(30)}}

	items, err := FetchAllPages(context.Background(), 30, nil, src.fetch)

	require.NoError(t, err)
	assert.Len(t, items, 60)
	assert.Equal(t, 3, src.calls)
}

func TestFetchAllPages_MidLoopErrorReturnsAccumulated(t *testing.T) {
	fetchErr := errors.New("connection reset")
	calls := 0
	fetch := func(_ context.Context, offset int) ([]int, error) {
		calls++
		if offset >= 30 {
			return nil, fetchErr
		}

		return makePage(30), nil
	}

	items, err := FetchAllPages(context.Background(), 30, nil, fetch)

	require.ErrorIs(t, err, fetchErr)
	assert.Len(t, items, 30)
	assert.Equal(t, 2, calls)
}

package jolpica

import (
	"context"
	"log/slog"
)

// PageFunc fetches one page of a paginated collection starting at offset.
type PageFunc[T any] func(ctx context.Context, offset int) ([]T, error)

// FetchAllPages retrieves every page of an externally paginated collection.
//
// The upstream service exposes no total count, so termination is inferred:
// a page with fewer items than pageSize is the last one. An empty first page
// means the collection has no data yet; that is logged as a warning, not an
// error. When a mid-loop fetch fails, the pages already accumulated are
// returned together with the error so the caller can persist what arrived
// and log the rest.
//
// Request pacing lives in the Client, not here; the loop itself never sleeps.
func FetchAllPages[T any](ctx context.Context, pageSize int, logger *slog.Logger, fetch PageFunc[T]) ([]T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var items []T

	for offset := 0; ; offset += pageSize {
		page, err := fetch(ctx, offset)
		if err != nil {
			return items, err
		}

		if len(page) == 0 {
			if offset == 0 {
				logger.Warn("Paginated collection is empty at first page")
			}

			return items, nil
		}

		items = append(items, page...)

		if len(page) < pageSize {
			return items, nil
		}
	}
}

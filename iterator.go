package glpi

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrEmptyIterator is returned by First when the iterator yields no items.
var ErrEmptyIterator = errors.New("iterator is empty")

// ContentRange is a parsed GLPI Content-Range header ("0-49/200").
type ContentRange struct {
	Start int
	End   int
	Total int
}

func parseContentRange(value string) (*ContentRange, error) {
	var cr ContentRange
	value = strings.TrimSpace(value)
	if _, err := fmt.Sscanf(value, "%d-%d/%d", &cr.Start, &cr.End, &cr.Total); err != nil {
		return nil, fmt.Errorf("glpi: invalid content range %q: %w", value, err)
	}
	return &cr, nil
}

// pageFetcher loads the rows in r and reports the total row count.
type pageFetcher[T any] func(ctx context.Context, r Range) ([]T, int, error)

// paginate walks ranges of pageSize rows until the reported total is
// reached or a page comes back empty.
func paginate[T any](ctx context.Context, pageSize int, fetch pageFetcher[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		start := 0

		for {
			items, total, err := fetch(ctx, Range{Start: start, End: start + pageSize - 1})
			if err != nil {
				yield(zero, err)
				return
			}

			for _, item := range items {
				if err := ctx.Err(); err != nil {
					yield(zero, err)
					return
				}
				if !yield(item, nil) {
					return
				}
			}

			start += len(items)
			if len(items) == 0 || start >= total {
				return
			}
		}
	}
}

// Collect gathers all items from an iterator into a slice.
// It stops on the first error and returns all items collected so far along with the error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	result := make([]T, 0)
	for item, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, item)
	}
	return result, nil
}

// CollectN gathers up to n items from an iterator.
func CollectN[T any](seq iter.Seq2[T, error], n int) ([]T, error) {
	result := make([]T, 0, n)
	if n <= 0 {
		return result, nil
	}
	for item, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, item)
		if len(result) >= n {
			break
		}
	}
	return result, nil
}

// First returns the first item from an iterator, or an error if the iterator is empty or fails.
func First[T any](seq iter.Seq2[T, error]) (T, error) {
	for item, err := range seq {
		return item, err
	}
	var zero T
	return zero, ErrEmptyIterator
}

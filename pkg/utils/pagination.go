package utils

import (
	"iter"
	"math"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Paginate drains seq, keeping only the requested page. The total counts every element seen.
func Paginate[T any](seq iter.Seq2[T, error], page, pageSize int) ([]T, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	start := Offset(page, pageSize)
	end := start + pageSize
	if end < start {
		end = math.MaxInt
	}

	items := []T{}
	total := 0
	for item, err := range seq {
		if err != nil {
			return nil, 0, err
		}
		if total >= start && total < end {
			items = append(items, item)
		}
		total++
	}
	return items, total, nil
}

// Offset returns the number of rows to skip, saturating instead of overflowing.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

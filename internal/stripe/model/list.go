package model

import (
	"sort"
	"strings"

	"github.com/mdbarr/mock-services/internal/stripe/domain"
)

// List is the envelope returned by every collection endpoint.
type List struct {
	Object     string `json:"object"`
	Data       []any  `json:"data"`
	HasMore    bool   `json:"has_more"`
	TotalCount int    `json:"total_count"`
	URL        string `json:"url"`
}

// CreatedFilter is an exact value or an open/closed range on created.
type CreatedFilter struct {
	Eq  *int64
	GT  *int64
	GTE *int64
	LT  *int64
	LTE *int64
}

// ListQuery carries the pagination and filter parameters of a list request.
// StartingAfter and EndingBefore are resource-id cursors into the
// created-descending ordering.
type ListQuery struct {
	Limit         int
	StartingAfter string
	EndingBefore  string
	Status        string
	Type          string
	Created       *CreatedFilter
}

// Item adapts one resource for pagination without the list code knowing the
// concrete kind.
type Item struct {
	ID      string
	Created int64
	Status  string
	Type    string
	Value   any
}

// Items maps a typed slice into pagination items.
func Items[T any](in []T, adapt func(T) Item) []Item {
	out := make([]Item, 0, len(in))
	for _, v := range in {
		out = append(out, adapt(v))
	}
	return out
}

// NewList wraps already-final items without paginating, for nested views.
func NewList(items []any, url string) *List {
	if items == nil {
		items = []any{}
	}
	return &List{
		Object:     "list",
		Data:       items,
		TotalCount: len(items),
		URL:        url,
	}
}

// Paginate slices the id-sorted sequence between cursors, applies filters and
// the limit, and reports has_more on truncation. Canceled items are excluded
// unless the caller filters for status=canceled. The input is copied; the
// underlying store order is never mutated.
func Paginate(items []Item, query ListQuery, url string) *List {
	limit := query.Limit
	if limit <= 0 {
		limit = domain.DefaultPaginationLimit
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Created != sorted[j].Created {
			return sorted[i].Created > sorted[j].Created
		}
		return sorted[i].ID > sorted[j].ID
	})

	if query.StartingAfter != "" {
		for i, item := range sorted {
			if item.ID == query.StartingAfter {
				sorted = sorted[i+1:]
				break
			}
		}
	}

	if query.EndingBefore != "" {
		for i, item := range sorted {
			if item.ID == query.EndingBefore {
				sorted = sorted[:i]
				break
			}
		}
	}

	filtered := sorted[:0:0]
	for _, item := range sorted {
		if item.Status == string(domain.SubscriptionStatusCanceled) &&
			query.Status != string(domain.SubscriptionStatusCanceled) {
			continue
		}
		if !matchCreated(item.Created, query.Created) {
			continue
		}
		if !matchType(item.Type, query.Type) {
			continue
		}
		filtered = append(filtered, item)
	}

	hasMore := false
	if len(filtered) > limit {
		hasMore = true
		filtered = filtered[:limit]
	}

	data := make([]any, 0, len(filtered))
	for _, item := range filtered {
		data = append(data, item.Value)
	}

	return &List{
		Object:     "list",
		Data:       data,
		HasMore:    hasMore,
		TotalCount: len(data),
		URL:        url,
	}
}

func matchCreated(created int64, filter *CreatedFilter) bool {
	if filter == nil {
		return true
	}
	switch {
	case filter.Eq != nil:
		return created == *filter.Eq
	case filter.GT != nil:
		return created > *filter.GT
	case filter.GTE != nil:
		return created >= *filter.GTE
	case filter.LT != nil:
		return created < *filter.LT
	case filter.LTE != nil:
		return created <= *filter.LTE
	}
	return true
}

// matchType supports exact event types and trailing wildcards, so
// "invoice.*" selects the whole invoice family.
func matchType(value, filter string) bool {
	if filter == "" {
		return true
	}
	filter = strings.ToLower(filter)
	if strings.HasSuffix(filter, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(filter, "*"))
	}
	return value == filter
}

package feed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kislikjeka/zapfeed/internal/module/reconcile"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/pkg/money"
)

// DefaultPageSize matches the feed table of the Teams tab
const DefaultPageSize = 10

// SortField is a sortable feed column
type SortField string

const (
	SortByTime   SortField = "time"
	SortByFrom   SortField = "from"
	SortByTo     SortField = "to"
	SortByAmount SortField = "amount"
)

// SortOrder is asc or desc
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortField accepts an empty value as time
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(s)); f {
	case "":
		return SortByTime, nil
	case SortByTime, SortByFrom, SortByTo, SortByAmount:
		return f, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseSortOrder accepts an empty value as desc
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case "":
		return OrderDesc, nil
	case OrderAsc, OrderDesc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// DisplayAmount is the sat amount shown for a transfer, |floor(msat/1000)|
func DisplayAmount(rt *reconcile.ReconciledTransfer) int64 {
	return money.DisplaySats(rt.Transaction.Amount)
}

// Sort returns a sorted copy. Equal keys keep their input order. Unresolved
// parties sort by the empty string.
func Sort(rows []reconcile.ReconciledTransfer, field SortField, order SortOrder) []reconcile.ReconciledTransfer {
	out := make([]reconcile.ReconciledTransfer, len(rows))
	copy(out, rows)

	cmp := compareFunc(field)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(&out[i], &out[j])
		if order == OrderDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareFunc(field SortField) func(a, b *reconcile.ReconciledTransfer) int {
	switch field {
	case SortByFrom:
		return func(a, b *reconcile.ReconciledTransfer) int {
			return strings.Compare(sortName(a.From), sortName(b.From))
		}
	case SortByTo:
		return func(a, b *reconcile.ReconciledTransfer) int {
			return strings.Compare(sortName(a.To), sortName(b.To))
		}
	case SortByAmount:
		return func(a, b *reconcile.ReconciledTransfer) int {
			return compareInt(DisplayAmount(a), DisplayAmount(b))
		}
	default:
		return func(a, b *reconcile.ReconciledTransfer) int {
			return compareInt(a.Transaction.Time.Unix(), b.Transaction.Time.Unix())
		}
	}
}

func sortName(u *user.User) string {
	if u == nil {
		return ""
	}
	return u.DisplayName
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Page is one page of the feed
type Page struct {
	Items      []reconcile.ReconciledTransfer `json:"items"`
	Page       int                            `json:"page"`
	PageSize   int                            `json:"page_size"`
	TotalPages int                            `json:"total_pages"`
	Total      int                            `json:"total"`
}

// Paginate slices rows into pages of pageSize, clamping page into
// [1, TotalPages]. An empty list yields page 1 of 0.
func Paginate(rows []reconcile.ReconciledTransfer, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(rows)
	totalPages := (total + pageSize - 1) / pageSize

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = max(totalPages, 1)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := rows[start:end]
	if items == nil {
		items = []reconcile.ReconciledTransfer{}
	}

	return Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
	}
}

package listsync

import (
	"sort"

	"github.com/vbonduro/vlogadmin/internal/domain"
)

type SortKey string

const (
	DateDesc SortKey = "date-desc"
	DateAsc  SortKey = "date-asc"
	NameAsc  SortKey = "name-asc"
	NameDesc SortKey = "name-desc"
)

// SortKeys lists the keys in the order the admin tables offer them.
var SortKeys = []SortKey{DateDesc, DateAsc, NameAsc, NameDesc}

// ParseSortKey maps a query value to a key, defaulting to DateDesc.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case DateDesc, DateAsc, NameAsc, NameDesc:
		return k
	default:
		return DateDesc
	}
}

func (k SortKey) Label() string {
	switch k {
	case DateAsc:
		return "Oldest first"
	case NameAsc:
		return "Name A-Z"
	case NameDesc:
		return "Name Z-A"
	default:
		return "Newest first"
	}
}

// sortDocs sorts in place. Equal keys keep their incoming order. Names compare
// byte-wise, so "Zebra" sorts before "apple".
func sortDocs[T any, PT interface {
	*T
	domain.Document
}](items []*T, key SortKey) {
	var less func(a, b PT) bool
	switch key {
	case DateAsc:
		less = func(a, b PT) bool { return a.SortTime().Before(b.SortTime()) }
	case NameAsc:
		less = func(a, b PT) bool { return a.DisplayName() < b.DisplayName() }
	case NameDesc:
		less = func(a, b PT) bool { return a.DisplayName() > b.DisplayName() }
	default:
		less = func(a, b PT) bool { return a.SortTime().After(b.SortTime()) }
	}
	sort.SliceStable(items, func(i, j int) bool {
		return less(PT(items[i]), PT(items[j]))
	})
}

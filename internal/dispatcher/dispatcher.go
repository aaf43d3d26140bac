// Package dispatcher implements the C7 filter & dispatch stage: selecting
// test cases from a catalog by name/category/group and emitting them to the
// executor in catalog order.
package dispatcher

import (
	"strings"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

// CategoryFilter is the -c flag's value space (spec.md §4.7).
type CategoryFilter string

const (
	CategoryAll                CategoryFilter = "All"
	CategoryWopiCore           CategoryFilter = "WopiCore"
	CategoryOfficeNativeClient CategoryFilter = "OfficeNativeClient"
	CategoryOfficeOnline       CategoryFilter = "OfficeOnline"
)

// Filter holds the -n/-c/-g selection criteria.
type Filter struct {
	TestName     string
	TestCategory CategoryFilter
	TestGroup    string
}

// Select returns the cases from cases matching f, preserving catalog
// declaration order (spec.md §4.7: "Order within a group follows catalog
// declaration order; order between groups follows catalog order" — callers
// pass cases already flattened group-by-group in catalog order).
func Select(cases []*model.TestCase, f Filter) []*model.TestCase {
	if f.TestName != "" {
		for _, tc := range cases {
			if tc.Name == f.TestName {
				return []*model.TestCase{tc}
			}
		}

		return nil
	}

	var out []*model.TestCase

	for _, tc := range cases {
		if !categoryMatches(tc.Category, f.TestCategory) {
			continue
		}

		if f.TestGroup != "" && !strings.EqualFold(tc.Group, f.TestGroup) {
			continue
		}

		out = append(out, tc)
	}

	return out
}

// categoryMatches implements the category lattice from spec.md §4.7/§8:
// WopiCore is a member of every filter's selected set; OfficeNativeClient
// and OfficeOnline filters each select WopiCore ∪ their own category, and
// exclude each other.
func categoryMatches(category model.Category, filter CategoryFilter) bool {
	switch filter {
	case CategoryAll, "":
		return true
	case CategoryWopiCore:
		return category == model.CategoryWopiCore
	case CategoryOfficeNativeClient:
		return category == model.CategoryWopiCore || category == model.CategoryOfficeNativeClient
	case CategoryOfficeOnline:
		return category == model.CategoryWopiCore || category == model.CategoryOfficeOnline
	default:
		return false
	}
}

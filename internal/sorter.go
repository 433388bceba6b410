package internal

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the ordering of the session list
type SortKey string

const (
	SortDefault      SortKey = "default"
	SortMessagesDesc SortKey = "messages-desc"
	SortMessagesAsc  SortKey = "messages-asc"
	SortTextDesc     SortKey = "text-desc"
	SortTextAsc      SortKey = "text-asc"
)

// SortKeys lists every accepted key, in menu order
var SortKeys = []SortKey{SortDefault, SortMessagesDesc, SortMessagesAsc, SortTextDesc, SortTextAsc}

// Label is the human readable name of the ordering
func (k SortKey) Label() string {
	switch k {
	case SortMessagesDesc:
		return "most messages first"
	case SortMessagesAsc:
		return "fewest messages first"
	case SortTextDesc:
		return "longest conversations first"
	case SortTextAsc:
		return "shortest conversations first"
	default:
		return "most recent first"
	}
}

// ParseSortKey validates a user supplied key. The empty string means default.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortDefault, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &ValidationError{
		Field: "sort",
		Msg:   fmt.Sprintf("unknown key %q (supported: default, messages-desc, messages-asc, text-desc, text-asc)", s),
	}
}

// SortSessions returns a sorted copy of sessions. The input is not modified
// and sessions with equal keys keep their relative order.
//
// The text-* orderings have no text length to work with and use the message
// count as an estimate.
func SortSessions(sessions []SessionSummary, key SortKey) []SessionSummary {
	sorted := slices.Clone(sessions)

	switch key {
	case SortMessagesDesc, SortTextDesc:
		slices.SortStableFunc(sorted, func(a, b SessionSummary) int {
			return cmp.Compare(b.Messages(), a.Messages())
		})
	case SortMessagesAsc, SortTextAsc:
		slices.SortStableFunc(sorted, func(a, b SessionSummary) int {
			return cmp.Compare(a.Messages(), b.Messages())
		})
	default:
		slices.SortStableFunc(sorted, func(a, b SessionSummary) int {
			return b.SortTime().Compare(a.SortTime())
		})
	}

	return sorted
}

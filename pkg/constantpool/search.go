package constantpool

import (
	"math"
	"strings"

	apperrors "github.com/jindex/pkg/errors"
)

// SearchMode selects where in a name the query may occur.
type SearchMode uint8

const (
	SearchModePrefix SearchMode = iota
	SearchModeContains
)

// String returns the flag spelling of the mode.
func (m SearchMode) String() string {
	switch m {
	case SearchModePrefix:
		return "prefix"
	case SearchModeContains:
		return "contains"
	default:
		return "unknown"
	}
}

// ParseSearchMode parses "prefix" or "contains".
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(s) {
	case "", "prefix":
		return SearchModePrefix, nil
	case "contains":
		return SearchModeContains, nil
	default:
		return SearchModePrefix, apperrors.Newf(apperrors.CodeInvalidInput, "unknown search mode %q", s)
	}
}

// MatchMode selects how letter case is compared.
type MatchMode uint8

const (
	MatchModeIgnoreCase MatchMode = iota
	MatchModeMatchCase
	MatchModeMatchCaseFirstCharOnly
)

// String returns the flag spelling of the mode.
func (m MatchMode) String() string {
	switch m {
	case MatchModeIgnoreCase:
		return "ignore-case"
	case MatchModeMatchCase:
		return "match-case"
	case MatchModeMatchCaseFirstCharOnly:
		return "match-case-first-char"
	default:
		return "unknown"
	}
}

// ParseMatchMode parses "ignore-case", "match-case" or "match-case-first-char".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case "", "ignore-case", "ignorecase":
		return MatchModeIgnoreCase, nil
	case "match-case", "matchcase":
		return MatchModeMatchCase, nil
	case "match-case-first-char", "matchcasefirstcharonly":
		return MatchModeMatchCaseFirstCharOnly, nil
	default:
		return MatchModeIgnoreCase, apperrors.Newf(apperrors.CodeInvalidInput, "unknown match mode %q", s)
	}
}

// SearchOptions controls name searches.
type SearchOptions struct {
	SearchMode SearchMode
	MatchMode  MatchMode
	Limit      int
}

// DefaultSearchOptions returns prefix, case-insensitive, unlimited options.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		SearchMode: SearchModePrefix,
		MatchMode:  MatchModeIgnoreCase,
		Limit:      math.MaxInt,
	}
}

// WithLimit returns a copy of o with a different limit.
func (o SearchOptions) WithLimit(limit int) SearchOptions {
	o.Limit = limit
	return o
}

// Package pattern builds the aggregate matcher that the masking stream
// scans output against. All active secret values for a scope are folded
// into a single compiled expression so each write is scanned once.
package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Aggregate is one compiled matcher covering every active secret as a
// literal substring. It is immutable once built and safe for concurrent
// use by any number of streams.
type Aggregate struct {
	re     *regexp.Regexp
	maxLen int
	count  int
}

// NoSecrets is the sentinel aggregate for an empty secret set. It never
// matches, so streams holding it can forward output verbatim.
var NoSecrets = &Aggregate{}

// Compile builds an aggregate matcher from plain-text secret values.
//
// Each value is quoted so it only ever matches literally. Values are
// ordered longest-first (ties broken lexicographically) before being
// joined into an alternation: when one secret is a prefix or substring
// of another, the longer one wins at any given position, so no
// recognizable remainder of a longer secret survives masking.
//
// Empty strings are dropped silently; an empty secret would match at
// every position and corrupt all output. If nothing remains, NoSecrets
// is returned. A compile failure (an oversized secret set can exceed
// the expression size limit) is returned as an error; callers must
// treat it as fatal for the output context, never as "no masking".
func Compile(secrets []string) (*Aggregate, error) {
	distinct := make(map[string]struct{}, len(secrets))
	for _, s := range secrets {
		if s == "" {
			continue
		}
		distinct[s] = struct{}{}
	}
	if len(distinct) == 0 {
		return NoSecrets, nil
	}

	ordered := make([]string, 0, len(distinct))
	for s := range distinct {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})

	quoted := make([]string, len(ordered))
	for i, s := range ordered {
		quoted[i] = regexp.QuoteMeta(s)
	}

	re, err := regexp.Compile(strings.Join(quoted, "|"))
	if err != nil {
		return nil, fmt.Errorf("failed to compile aggregate secret pattern from %d values: %w", len(ordered), err)
	}

	return &Aggregate{
		re:     re,
		maxLen: len(ordered[0]),
		count:  len(ordered),
	}, nil
}

// IsNoop reports whether this aggregate can never match. Streams use it
// as the fast-path check before scanning.
func (a *Aggregate) IsNoop() bool {
	return a == nil || a.re == nil
}

// MaxLen returns the byte length of the longest secret in the set.
// Streams retain MaxLen()-1 trailing bytes between writes, since that
// suffix could be the prefix of a secret completed by the next write.
func (a *Aggregate) MaxLen() int {
	return a.maxLen
}

// Count returns the number of distinct secrets in the aggregate.
func (a *Aggregate) Count() int {
	return a.count
}

// Matches returns the [start, end) byte offsets of all non-overlapping
// matches in b, leftmost first. Because alternatives are ordered
// longest-first and every alternative is a literal, the leftmost match
// at a position is also the longest.
func (a *Aggregate) Matches(b []byte) [][]int {
	if a.IsNoop() {
		return nil
	}
	return a.re.FindAllIndex(b, -1)
}

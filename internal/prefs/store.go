package prefs

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Store persists the user's monitored-county set across restarts. An empty
// set means "no geographic restriction". County identifiers are not
// validated here; an unknown identifier simply never matches an event.
type Store interface {
	Load(ctx context.Context) ([]int, error)
	Save(ctx context.Context, counties []int) error
}

// encodeCounties renders the set as a comma-separated string, sorted and
// de-duplicated so the persisted form is canonical.
func encodeCounties(counties []int) string {
	if len(counties) == 0 {
		return ""
	}

	seen := make(map[int]struct{}, len(counties))
	uniq := make([]int, 0, len(counties))
	for _, c := range counties {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	sort.Ints(uniq)

	parts := make([]string, len(uniq))
	for i, c := range uniq {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

// decodeCounties parses the persisted string. Entries that fail to parse are
// skipped: a corrupt value degrades to a smaller (or empty) set rather than
// an error, per the load contract.
func decodeCounties(raw string) []int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var counties []int
	for _, part := range strings.Split(raw, ",") {
		c, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		counties = append(counties, c)
	}
	return counties
}

package library

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"posekit/internal/config"
)

// SortOrder selects how List orders poses.
type SortOrder struct {
	Key        string
	Descending bool
}

// DefaultSortOrder returns the order configured in library.default_sort.
func DefaultSortOrder(cfg *config.Config) SortOrder {
	return SortOrder{Key: cfg.Library.DefaultSort, Descending: cfg.Library.Descending}
}

// ParseSortKey accepts name, created or modified.
func ParseSortKey(key string) (string, error) {
	switch key {
	case config.SortName, config.SortCreated, config.SortModified:
		return key, nil
	case "":
		return config.SortName, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want %s, %s or %s)", key, config.SortName, config.SortCreated, config.SortModified)
	}
}

// SortPoses orders poses in place. Names compare case-insensitively with
// digit runs taken numerically, so Walk2 sorts before Walk10. Time keys fall
// back to the name order on ties.
func SortPoses(poses []PoseInfo, order SortOrder) {
	col := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	byName := func(a, b PoseInfo) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	}

	var cmp func(a, b PoseInfo) int
	switch order.Key {
	case config.SortCreated:
		cmp = func(a, b PoseInfo) int {
			if c := a.Created.Compare(b.Created); c != 0 {
				return c
			}
			return byName(a, b)
		}
	case config.SortModified:
		cmp = func(a, b PoseInfo) int {
			if c := a.Modified.Compare(b.Modified); c != 0 {
				return c
			}
			return byName(a, b)
		}
	default:
		cmp = byName
	}

	sort.SliceStable(poses, func(i, j int) bool {
		c := cmp(poses[i], poses[j])
		if order.Descending {
			return c > 0
		}
		return c < 0
	})
}

package domain

import (
	"sort"

	"github.com/google/uuid"

	"medcrm_backend/platform/apperr"
)

// SortByOrder sorts lines by order index in place.
func SortByOrder(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].OrderIndex < lines[j].OrderIndex
	})
}

// NextOrderIndex returns max(orderIndex)+1, or 1 for an empty quote.
func NextOrderIndex(lines []Line) int {
	maxIndex := 0
	for _, line := range lines {
		if line.OrderIndex > maxIndex {
			maxIndex = line.OrderIndex
		}
	}
	return maxIndex + 1
}

// ApplyOrder assigns order indexes 1..N following orderedIDs. The ids must be
// a permutation of the quote's line ids.
func ApplyOrder(lines []Line, orderedIDs []uuid.UUID) ([]Line, error) {
	byID := make(map[uuid.UUID]Line, len(lines))
	for _, line := range lines {
		byID[line.ID] = line
	}

	seen := make(map[uuid.UUID]struct{}, len(orderedIDs))
	var invalid []string
	for _, id := range orderedIDs {
		_, known := byID[id]
		_, dup := seen[id]
		if !known || dup {
			invalid = append(invalid, id.String())
			continue
		}
		seen[id] = struct{}{}
	}
	if len(invalid) > 0 {
		return nil, apperr.Validation("line ids do not belong to this quote or are repeated").
			WithCode(CodeInvalidLineIDs).
			WithDetails(map[string][]string{"lineIds": invalid})
	}
	if len(seen) != len(lines) {
		return nil, apperr.Validation("every line of the quote must be listed exactly once").
			WithCode(CodeIncompleteLineList)
	}

	ordered := make([]Line, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		line := byID[id]
		line.OrderIndex = i + 1
		ordered = append(ordered, line)
	}
	return ordered, nil
}

// Compact closes gaps left by deletions. It returns every line in order and
// the subset whose index changed.
func Compact(lines []Line) (all []Line, changed []Line) {
	all = make([]Line, len(lines))
	copy(all, lines)
	SortByOrder(all)
	for i := range all {
		want := i + 1
		if all[i].OrderIndex != want {
			all[i].OrderIndex = want
			changed = append(changed, all[i])
		}
	}
	return all, changed
}

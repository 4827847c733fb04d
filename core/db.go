package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrderings drops the orderings whose field is not in `allowed` (a map of public name -> column).
// Kept fields are renamed to their column.
func CleanOrderings(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := allowed[strings.ToLower(strings.TrimSpace(ord.Field))]
		if !ok {
			continue
		}
		cleaned = append(cleaned, DBOrdering{Field: col, Ascending: ord.Ascending})
	}
	return cleaned
}

// OrderBy renders orderings as an SQL ORDER BY clause body, or `fallback` when there are none.
func OrderBy(orderings []DBOrdering, fallback string) string {
	if len(orderings) == 0 {
		return fallback
	}
	parts := make([]string, len(orderings))
	for i, ord := range orderings {
		parts[i] = ord.String()
	}
	return strings.Join(parts, ", ")
}

package core

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBExecutor interface {
	sqlx.ExtContext
}

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

// ParseOrdering parses a comma separated list of fields, each optionally prefixed
// with "-" for descending order. e.g. "-created_at,full_name"
func ParseOrdering(s string) []DBOrdering {
	var ords []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}

// MapOrdering keeps the orderings whose field is a key of columns, renaming them to the mapped column.
// Unknown fields are dropped.
func MapOrdering(ords []DBOrdering, columns map[string]string) []DBOrdering {
	mapped := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		if col, ok := columns[ord.Field]; ok {
			mapped = append(mapped, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return mapped
}

package repository

import "strings"

// nullableID converts an optional foreign key into a driver value.
func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a case-insensitive substring LIKE match, escaping
// the wildcard characters a client may send.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// orderingColumn resolves a client ordering key such as "-debt" against a
// whitelist.  Unknown keys resolve to an empty column.
func orderingColumn(ordering string, allowed map[string]string) (string, string) {
	ordering = strings.TrimSpace(ordering)
	dir := "ASC"
	if strings.HasPrefix(ordering, "-") {
		dir = "DESC"
		ordering = ordering[1:]
	}
	col, ok := allowed[ordering]
	if !ok {
		return "", ""
	}
	return col, dir
}

package draft

import (
	"fmt"
	"strconv"
	"strings"
)

// Preview renders d as a SQL-shaped multi-line string for display. Empty
// clauses are omitted, and so is OFFSET when it is zero.
func Preview(table string, d Draft) string {
	lines := []string{
		"SELECT " + previewSelect(d),
		"FROM " + strings.TrimSpace(table),
	}

	if len(d.Where) > 0 {
		parts := make([]string, len(d.Where))
		for i, w := range d.Where {
			parts[i] = fmt.Sprintf("%s %s %s", w.Column, strings.ToUpper(string(w.Op)), w.Value.Literal())
		}

		lines = append(lines, "WHERE "+strings.Join(parts, " AND "))
	}

	if len(d.GroupBy) > 0 {
		lines = append(lines, "GROUP BY "+strings.Join(d.GroupBy, ", "))
	}

	if len(d.OrderBy) > 0 {
		parts := make([]string, len(d.OrderBy))
		for i, o := range d.OrderBy {
			parts[i] = o.Expr + " " + strings.ToUpper(string(o.Dir))
		}

		lines = append(lines, "ORDER BY "+strings.Join(parts, ", "))
	}

	if d.Limit > 0 {
		lines = append(lines, "LIMIT "+strconv.Itoa(d.Limit))
	}

	if d.Offset > 0 {
		lines = append(lines, "OFFSET "+strconv.Itoa(d.Offset))
	}

	return strings.Join(lines, "\n")
}

func previewSelect(d Draft) string {
	if d.SelectAll {
		return "*"
	}

	if len(d.Select) == 0 {
		return "(nenhuma coluna)"
	}

	parts := make([]string, 0, len(d.Select))

	for _, p := range d.Select {
		switch p.Kind {
		case KindColumn:
			if p.Alias != "" && p.Alias != p.Name {
				parts = append(parts, p.Name+" AS "+p.Alias)
			} else {
				parts = append(parts, p.Name)
			}
		case KindAggregate:
			col := p.Column
			if col == "" {
				col = "*"
			}

			expr := fmt.Sprintf("%s(%s)", strings.ToUpper(p.Function), col)
			if p.Alias != "" {
				expr += " AS " + p.Alias
			}

			parts = append(parts, expr)
		}
	}

	return strings.Join(parts, ", ")
}

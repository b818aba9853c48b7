package draft

import (
	"slices"
	"strings"

	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/textnorm"
)

// Validation messages
const (
	MsgNoColumns    = "Você ainda não escolheu colunas. Use: 'todas as colunas' ou 'colunas: a,b,c'."
	MsgInvalidLimit = "O limite está inválido. Use: 'limite: 20'."
)

// Apply returns the draft that results from cmd. It never modifies d; every
// slice that changes is copied first. Commands that do not mutate a draft
// return it unchanged.
func Apply(d Draft, cmd Command) Draft {
	switch cmd.Kind {
	case CmdReset:
		return New()

	case CmdSelectAll:
		d.SelectAll = true
		d.Select = nil

	case CmdSetColumns:
		d.SelectAll = false
		d.Select = nil

		for _, name := range cleanNames(cmd.Columns) {
			d.Select = append(d.Select, ColumnProjection(name))
		}

	case CmdAddColumns:
		present := make(map[string]bool, len(d.Select))

		for _, p := range d.Select {
			if p.Kind == KindColumn {
				present[p.Name] = true
			}
		}

		next := slices.Clone(d.Select)

		for _, name := range cleanNames(cmd.Columns) {
			if !present[name] {
				next = append(next, ColumnProjection(name))
			}
		}

		d.SelectAll = false
		d.Select = next

	case CmdRemoveColumns:
		drop := make(map[string]bool)
		for _, name := range cleanNames(cmd.Columns) {
			drop[name] = true
		}

		var next []Projection

		for _, p := range d.Select {
			if p.Kind == KindColumn && drop[p.Name] {
				continue
			}

			next = append(next, p)
		}

		d.SelectAll = false
		d.Select = next

	case CmdClearColumns:
		d.SelectAll = false
		d.Select = nil

	case CmdAddAggregate:
		next := slices.Clone(d.Select)

		for _, agg := range cmd.Aggregates {
			i := slices.IndexFunc(next, func(p Projection) bool {
				return p.Kind == KindAggregate && p.Alias == agg.Alias
			})
			if i >= 0 {
				next[i] = agg
			} else {
				next = append(next, agg)
			}
		}

		d.SelectAll = false
		d.Select = next

	case CmdAddWhere:
		if cmd.Predicate.Column == "" || cmd.Predicate.Op == "" {
			return d
		}

		next := slices.Clone(d.Where)
		d.Where = append(next, cmd.Predicate)

	case CmdClearWhere:
		d.Where = nil

	case CmdSetGroupBy:
		d.GroupBy = cleanNames(cmd.Columns)
		if len(d.GroupBy) == 0 {
			d.GroupBy = nil
		}

	case CmdClearGroupBy:
		d.GroupBy = nil

	case CmdSetOrderBy:
		var next []OrderTerm

		for _, term := range cmd.OrderBy {
			expr := strings.TrimSpace(term.Expr)
			if expr == "" {
				continue
			}

			dir := Asc
			if strings.EqualFold(string(term.Dir), string(Desc)) {
				dir = Desc
			}

			next = append(next, OrderTerm{Expr: expr, Dir: dir})
		}

		d.OrderBy = next

	case CmdClearOrderBy:
		d.OrderBy = nil

	case CmdSetLimit:
		if cmd.Number <= 0 {
			return d
		}

		d.Limit = min(cmd.Number, MaxLimit)

	case CmdSetOffset:
		if cmd.Number < 0 {
			return d
		}

		d.Offset = cmd.Number
	}

	return d
}

// Validate checks that d can be executed. It never modifies d.
func Validate(d Draft) error {
	if !d.Ready() {
		return errors.New(errors.ErrTypeValidation, MsgNoColumns)
	}

	if d.Limit <= 0 || d.Limit > MaxLimit {
		return errors.New(errors.ErrTypeValidation, MsgInvalidLimit)
	}

	return nil
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))

	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}

	return textnorm.Dedupe(out)
}

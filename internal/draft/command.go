package draft

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kyleking/catalog-chat/internal/textnorm"
)

// CommandKind identifies a parsed wizard command
type CommandKind string

const (
	CmdReset         CommandKind = "RESET"
	CmdPreview       CommandKind = "PREVIEW"
	CmdExecute       CommandKind = "EXECUTE"
	CmdSelectAll     CommandKind = "SELECT_ALL"
	CmdSetColumns    CommandKind = "SET_COLUMNS"
	CmdAddColumns    CommandKind = "ADD_COLUMNS"
	CmdRemoveColumns CommandKind = "REMOVE_COLUMNS"
	CmdClearColumns  CommandKind = "CLEAR_COLUMNS"
	CmdAddWhere      CommandKind = "ADD_WHERE"
	CmdClearWhere    CommandKind = "CLEAR_WHERE"
	CmdSetGroupBy    CommandKind = "SET_GROUP_BY"
	CmdClearGroupBy  CommandKind = "CLEAR_GROUP_BY"
	CmdAddAggregate  CommandKind = "ADD_AGGREGATE"
	CmdSetOrderBy    CommandKind = "SET_ORDER_BY"
	CmdClearOrderBy  CommandKind = "CLEAR_ORDER_BY"
	CmdSetLimit      CommandKind = "SET_LIMIT"
	CmdSetOffset     CommandKind = "SET_OFFSET"
	CmdSetExplain    CommandKind = "SET_EXPLAIN"
	CmdUnknown       CommandKind = "UNKNOWN"
)

// Messages attached to malformed labeled commands
const (
	ErrInvalidFilter    = "Filtro inválido. Ex: filtro: area_km2 > 10"
	ErrInvalidOrder     = "Ordem inválida. Ex: ordenar por: area_km2 desc"
	ErrInvalidAggregate = "Agregação inválida. Ex: agregar: sum(area_ha) como area_total"
)

// Command is one parsed wizard instruction. Only the fields relevant to Kind
// are set.
type Command struct {
	Kind       CommandKind
	Columns    []string
	Predicate  Predicate
	OrderBy    []OrderTerm
	Aggregates []Projection
	Number     int
	Flag       bool

	// Raw and Error are set for CmdUnknown
	Raw   string
	Error string
}

// Mutates reports whether applying the command can change a draft
func (c Command) Mutates() bool {
	switch c.Kind {
	case CmdPreview, CmdExecute, CmdSetExplain, CmdUnknown:
		return false
	}

	return true
}

var (
	setColumnsRe    = regexp.MustCompile(`(?i)^(?:colunas|selecionar colunas|select|columns)\s*[:\-]\s*(.+)$`)
	addColumnsRe    = regexp.MustCompile(`(?i)^(?:adicionar colunas|add colunas|add columns)\s*[:\-]\s*(.+)$`)
	removeColumnsRe = regexp.MustCompile(`(?i)^(?:remover colunas|del colunas|-colunas)\s*[:\-]\s*(.+)$`)
	filterRe        = regexp.MustCompile(`(?i)^(?:filtro|filtrar|where)\s*[:\-]\s*(.+)$`)
	groupByRe       = regexp.MustCompile(`(?i)^(?:agrupar por|group by)\s*[:\-]\s*(.+)$`)
	orderByRe       = regexp.MustCompile(`(?i)^(?:ordenar por|order by)\s*[:\-]\s*(.+)$`)
	aggregateRe     = regexp.MustCompile(`(?i)^(?:agregar|aggregate|agregacao|agregação)\s*[:\-]\s*(.+)$`)
	limitRe         = regexp.MustCompile(`(?i)^(?:limite|limit)\s*[:\-]\s*(\d+)$`)
	offsetRe        = regexp.MustCompile(`(?i)^offset\s*[:\-]\s*(\d+)$`)

	inExprRe    = regexp.MustCompile(`(?i)^([a-zA-Z_]\w*)\s+(IN)\s+(\(.+\))$`)
	opExprRe    = regexp.MustCompile(`(?i)^([a-zA-Z_]\w*)\s*(=|!=|>=|>|<=|<|ILIKE|LIKE)\s*(.+)$`)
	orderExprRe = regexp.MustCompile(`(?i)^([a-zA-Z_]\w*)(?:\s+(asc|desc))?$`)
	aggExprRe   = regexp.MustCompile(`(?i)^(sum|count|avg|min|max)\s*\(\s*(\*|[a-zA-Z_]\w*)\s*\)(?:\s+(?:como|as)\s+([a-zA-Z_]\w*))?$`)
	numberRe    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

	resetRe        = regexp.MustCompile(`\b(reset(ar)?|recomecar|limpar consulta|nova consulta)\b`)
	previewRe      = regexp.MustCompile(`\b(preview|pre-?via|mostrar consulta|ver consulta|mostrar fca|ver fca)\b`)
	executeRe      = regexp.MustCompile(`\b(executar|rodar|consultar|buscar dados|enviar|ok pode ir)\b`)
	clearColumnsRe = regexp.MustCompile(`\b(limpar colunas|remover todas as colunas)\b`)
	clearWhereRe   = regexp.MustCompile(`\b(limpar filtros|remover filtros|sem filtro)\b`)
	clearGroupRe   = regexp.MustCompile(`\b(limpar grupo|limpar agrupamento|sem grupo)\b`)
	clearOrderRe   = regexp.MustCompile(`\b(limpar ordem|sem ordem)\b`)
	selectAllRe    = regexp.MustCompile(`\b(todas as colunas|tudo|selecionar tudo|todas)\b`)
	explainRe      = regexp.MustCompile(`\b(explicar|explain)\b`)
	explainOnRe    = regexp.MustCompile(`\b(sim|true|on|ligar|ativar)\b`)
	explainOffRe   = regexp.MustCompile(`\b(nao|false|off|desligar|desativar)\b`)
)

// Parse reads one wizard utterance. Labeled forms ("colunas: a, b") are
// tried before keyword forms so that values such as "tudo" inside a filter
// are not mistaken for commands. Text matching nothing yields CmdUnknown.
func Parse(text string) Command {
	original := strings.TrimSpace(text)
	t := textnorm.Normalize(original)

	if t == "" {
		return Command{Kind: CmdUnknown, Raw: original}
	}

	if cmd, ok := parseLabeled(original); ok {
		return cmd
	}

	switch {
	case resetRe.MatchString(t):
		return Command{Kind: CmdReset}
	case previewRe.MatchString(t):
		return Command{Kind: CmdPreview}
	case executeRe.MatchString(t):
		return Command{Kind: CmdExecute}
	case clearColumnsRe.MatchString(t):
		return Command{Kind: CmdClearColumns}
	case clearWhereRe.MatchString(t):
		return Command{Kind: CmdClearWhere}
	case clearGroupRe.MatchString(t):
		return Command{Kind: CmdClearGroupBy}
	case clearOrderRe.MatchString(t):
		return Command{Kind: CmdClearOrderBy}
	case explainRe.MatchString(t) && explainOnRe.MatchString(t):
		return Command{Kind: CmdSetExplain, Flag: true}
	case explainRe.MatchString(t) && explainOffRe.MatchString(t):
		return Command{Kind: CmdSetExplain, Flag: false}
	case selectAllRe.MatchString(t):
		return Command{Kind: CmdSelectAll}
	}

	return Command{Kind: CmdUnknown, Raw: original}
}

func parseLabeled(original string) (Command, bool) {
	if m := setColumnsRe.FindStringSubmatch(original); m != nil {
		return Command{Kind: CmdSetColumns, Columns: textnorm.SplitList(m[1])}, true
	}

	if m := addColumnsRe.FindStringSubmatch(original); m != nil {
		return Command{Kind: CmdAddColumns, Columns: textnorm.SplitList(m[1])}, true
	}

	if m := removeColumnsRe.FindStringSubmatch(original); m != nil {
		return Command{Kind: CmdRemoveColumns, Columns: textnorm.SplitList(m[1])}, true
	}

	if m := filterRe.FindStringSubmatch(original); m != nil {
		pred, ok := parsePredicate(m[1])
		if !ok {
			return Command{Kind: CmdUnknown, Raw: original, Error: ErrInvalidFilter}, true
		}

		return Command{Kind: CmdAddWhere, Predicate: pred}, true
	}

	if m := groupByRe.FindStringSubmatch(original); m != nil {
		return Command{Kind: CmdSetGroupBy, Columns: textnorm.SplitList(m[1])}, true
	}

	if m := orderByRe.FindStringSubmatch(original); m != nil {
		var terms []OrderTerm

		for _, part := range textnorm.SplitList(m[1]) {
			if term, ok := parseOrderTerm(part); ok {
				terms = append(terms, term)
			}
		}

		if len(terms) == 0 {
			return Command{Kind: CmdUnknown, Raw: original, Error: ErrInvalidOrder}, true
		}

		return Command{Kind: CmdSetOrderBy, OrderBy: terms}, true
	}

	if m := aggregateRe.FindStringSubmatch(original); m != nil {
		var aggs []Projection

		for _, part := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ';' || r == '|' || r == ',' }) {
			agg, ok := parseAggregate(strings.TrimSpace(part))
			if !ok {
				return Command{Kind: CmdUnknown, Raw: original, Error: ErrInvalidAggregate}, true
			}

			aggs = append(aggs, agg)
		}

		if len(aggs) == 0 {
			return Command{Kind: CmdUnknown, Raw: original, Error: ErrInvalidAggregate}, true
		}

		return Command{Kind: CmdAddAggregate, Aggregates: aggs}, true
	}

	if m := limitRe.FindStringSubmatch(original); m != nil {
		return Command{Kind: CmdSetLimit, Number: atoiSaturating(m[1])}, true
	}

	if m := offsetRe.FindStringSubmatch(original); m != nil {
		return Command{Kind: CmdSetOffset, Number: atoiSaturating(m[1])}, true
	}

	return Command{}, false
}

func parsePredicate(expr string) (Predicate, bool) {
	expr = strings.TrimSpace(expr)

	if m := inExprRe.FindStringSubmatch(expr); m != nil {
		return Predicate{Column: m[1], Op: OpIn, Value: parseInList(m[3])}, true
	}

	if m := opExprRe.FindStringSubmatch(expr); m != nil {
		return Predicate{
			Column: m[1],
			Op:     Operator(strings.ToUpper(m[2])),
			Value:  ParseScalar(m[3]),
		}, true
	}

	return Predicate{}, false
}

func parseInList(raw string) Value {
	inner := strings.TrimSpace(raw)
	inner = strings.TrimPrefix(inner, "(")
	inner = strings.TrimSuffix(inner, ")")

	parts := textnorm.SplitList(inner)
	items := make([]Value, len(parts))

	for i, p := range parts {
		items[i] = ParseScalar(p)
	}

	return List(items...)
}

func parseOrderTerm(raw string) (OrderTerm, bool) {
	m := orderExprRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return OrderTerm{}, false
	}

	dir := Asc
	if strings.EqualFold(m[2], "desc") {
		dir = Desc
	}

	return OrderTerm{Expr: m[1], Dir: dir}, true
}

func parseAggregate(raw string) (Projection, bool) {
	m := aggExprRe.FindStringSubmatch(raw)
	if m == nil {
		return Projection{}, false
	}

	fn := strings.ToLower(m[1])
	col := m[2]

	alias := m[3]
	if alias == "" {
		if col == "*" {
			alias = fn
		} else {
			alias = fn + "_" + col
		}
	}

	return AggregateProjection(fn, col, alias), true
}

// ParseScalar types a raw operand: true/false, null, and plain decimal
// numbers become their kinds; quoted text is always a string with the quotes
// removed; anything else is a string.
func ParseScalar(raw string) Value {
	v := strings.TrimSpace(raw)

	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return String(v[1 : len(v)-1])
		}
	}

	switch {
	case strings.EqualFold(v, "true"):
		return Bool(true)
	case strings.EqualFold(v, "false"):
		return Bool(false)
	case strings.EqualFold(v, "null"):
		return Null()
	case numberRe.MatchString(v):
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return Number(n)
		}
	}

	return String(v)
}

func atoiSaturating(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}

	return n
}

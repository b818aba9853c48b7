// Package draft holds the structured query assembled across wizard turns:
// the command grammar parsed from free text, a pure reducer applying commands
// to a draft, a validator, and the two renderings of a draft (a SQL-shaped
// preview for people and the payload sent to the execution endpoint).
package draft

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the row limit of a fresh draft
	DefaultLimit = 100
	// MaxLimit caps every limit a command can set
	MaxLimit = 10000
)

// ProjectionKind tags a select entry
type ProjectionKind string

const (
	KindColumn    ProjectionKind = "column"
	KindAggregate ProjectionKind = "agg"
)

// Projection is one select entry: a plain column or an aggregate
type Projection struct {
	Kind ProjectionKind
	// Name is the column of a KindColumn projection
	Name string
	// Function and Column describe a KindAggregate projection; Column may be "*"
	Function string
	Column   string
	Alias    string
}

// ColumnProjection selects a column under its own name
func ColumnProjection(name string) Projection {
	return Projection{Kind: KindColumn, Name: name, Alias: name}
}

// AggregateProjection applies fn to column
func AggregateProjection(fn, column, alias string) Projection {
	return Projection{Kind: KindAggregate, Function: strings.ToUpper(fn), Column: column, Alias: alias}
}

// Operator is a predicate comparison
type Operator string

const (
	OpEq    Operator = "="
	OpNe    Operator = "!="
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpLike  Operator = "LIKE"
	OpILike Operator = "ILIKE"
	OpIn    Operator = "IN"
)

// Valid reports whether op is one of the supported operators
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike, OpIn:
		return true
	}

	return false
}

// ValueKind tags a Value
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueNull
	ValueList
)

// Value is a predicate operand: a scalar, or a list of scalars for IN
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
}

// String returns a string value
func String(s string) Value { return Value{kind: ValueString, str: s} }

// Number returns a numeric value
func Number(n float64) Value { return Value{kind: ValueNumber, num: n} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// Null returns the null value
func Null() Value { return Value{kind: ValueNull} }

// List returns a list value
func List(items ...Value) Value {
	return Value{kind: ValueList, list: append([]Value(nil), items...)}
}

// Kind returns the value kind
func (v Value) Kind() ValueKind { return v.kind }

// Items returns the elements of a list value
func (v Value) Items() []Value { return v.list }

// Literal renders the value the way the preview shows it
func (v Value) Literal() string {
	switch v.kind {
	case ValueNull:
		return "NULL"
	case ValueBool:
		if v.b {
			return "TRUE"
		}

		return "FALSE"
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Literal()
		}

		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "'" + strings.ReplaceAll(v.str, "'", "''") + "'"
	}
}

// MarshalJSON encodes the value as its natural JSON type
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueNull:
		return []byte("null"), nil
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}

		return json.Marshal(v.list)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// Predicate is one WHERE condition
type Predicate struct {
	Column string
	Op     Operator
	Value  Value
}

// Direction is an ORDER BY direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderTerm is one ORDER BY entry
type OrderTerm struct {
	Expr string
	Dir  Direction
}

// Draft is the structured query under construction
type Draft struct {
	Select    []Projection
	SelectAll bool
	Where     []Predicate
	GroupBy   []string
	OrderBy   []OrderTerm
	Limit     int
	Offset    int
}

// New returns an empty draft with the default limit
func New() Draft {
	return Draft{Limit: DefaultLimit}
}

// Ready reports whether the draft has a projection to execute
func (d Draft) Ready() bool {
	return d.SelectAll || len(d.Select) > 0
}

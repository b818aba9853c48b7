package draft

import (
	"github.com/kyleking/catalog-chat/internal/errors"
)

// Request is the body sent to the execution endpoint
type Request struct {
	Question        string  `json:"question"`
	TableIdentifier string  `json:"table_identifier" validate:"required"`
	TopK            int     `json:"top_k"            validate:"gte=1"`
	Explain         bool    `json:"explain"`
	ConversationID  *string `json:"conversation_id"`
	Query           Query   `json:"fca"`
}

// Query is the structured query of a Request
type Query struct {
	Select  []SelectItem `json:"select"   validate:"dive"`
	Where   []WhereItem  `json:"where"    validate:"dive"`
	GroupBy []string     `json:"group_by" validate:"dive,required"`
	OrderBy []OrderItem  `json:"order_by" validate:"dive"`
	Limit   int          `json:"limit"    validate:"gte=1,lte=10000"`
	Offset  int          `json:"offset"   validate:"gte=0"`
}

// SelectItem is one projection on the wire
type SelectItem struct {
	Type   string `json:"type"             validate:"oneof=column agg"`
	Name   string `json:"name,omitempty"   validate:"required_if=Type column"`
	Agg    string `json:"agg,omitempty"    validate:"required_if=Type agg"`
	Column string `json:"column,omitempty" validate:"required_if=Type agg"`
	Alias  string `json:"alias,omitempty"`
}

// WhereItem is one predicate on the wire
type WhereItem struct {
	Column string `json:"column" validate:"required"`
	Op     string `json:"op"     validate:"required"`
	Value  Value  `json:"value"`
}

// OrderItem is one ordering term on the wire
type OrderItem struct {
	Expr string `json:"expr" validate:"required"`
	Dir  string `json:"dir"  validate:"oneof=asc desc"`
}

// BuildPayload maps d onto the execution request. A select-all draft sends
// an empty select list. The limit falls back from the draft to topK to
// DefaultLimit; top_k falls back to that limit. Projections, operators or
// values of unknown kind are rejected.
func BuildPayload(table string, d Draft, question string, topK int, explain bool, conversationID string) (Request, error) {
	limit := d.Limit
	if limit <= 0 {
		limit = topK
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	if topK <= 0 {
		topK = limit
	}

	q := Query{
		Select:  make([]SelectItem, 0, len(d.Select)),
		Where:   make([]WhereItem, 0, len(d.Where)),
		GroupBy: append(make([]string, 0, len(d.GroupBy)), d.GroupBy...),
		OrderBy: make([]OrderItem, 0, len(d.OrderBy)),
		Limit:   limit,
		Offset:  max(d.Offset, 0),
	}

	if !d.SelectAll {
		for _, p := range d.Select {
			item, err := selectItem(p)
			if err != nil {
				return Request{}, err
			}

			q.Select = append(q.Select, item)
		}
	}

	for _, w := range d.Where {
		if !w.Op.Valid() {
			return Request{}, errors.Newf(errors.ErrTypeValidation, "unsupported operator %q", w.Op)
		}

		if err := checkValue(w.Value); err != nil {
			return Request{}, err
		}

		q.Where = append(q.Where, WhereItem{Column: w.Column, Op: string(w.Op), Value: w.Value})
	}

	for _, o := range d.OrderBy {
		q.OrderBy = append(q.OrderBy, OrderItem{Expr: o.Expr, Dir: string(o.Dir)})
	}

	req := Request{
		Question:        question,
		TableIdentifier: table,
		TopK:            topK,
		Explain:         explain,
		Query:           q,
	}

	if conversationID != "" {
		req.ConversationID = &conversationID
	}

	return req, nil
}

func selectItem(p Projection) (SelectItem, error) {
	switch p.Kind {
	case KindColumn:
		return SelectItem{Type: string(KindColumn), Name: p.Name, Alias: p.Alias}, nil
	case KindAggregate:
		col := p.Column
		if col == "" {
			col = "*"
		}

		return SelectItem{Type: string(KindAggregate), Agg: p.Function, Column: col, Alias: p.Alias}, nil
	default:
		return SelectItem{}, errors.Newf(errors.ErrTypeValidation, "unsupported projection kind %q", p.Kind)
	}
}

func checkValue(v Value) error {
	switch v.Kind() {
	case ValueString, ValueNumber, ValueBool, ValueNull:
		return nil
	case ValueList:
		for _, item := range v.Items() {
			if item.Kind() == ValueList {
				return errors.New(errors.ErrTypeValidation, "nested lists are not supported")
			}

			if err := checkValue(item); err != nil {
				return err
			}
		}

		return nil
	default:
		return errors.Newf(errors.ErrTypeValidation, "unsupported value kind %d", v.Kind())
	}
}

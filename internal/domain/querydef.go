package domain

// Constraint operators accepted in a query definition.
const (
	OpEq      = "eq"
	OpNe      = "ne"
	OpLt      = "lt"
	OpLe      = "le"
	OpGt      = "gt"
	OpGe      = "ge"
	OpLike    = "like"
	OpIn      = "in"
	OpNull    = "is_null"
	OpNotNull = "not_null"
)

// Logic connectives for combining constraints.
const (
	LogicAnd = "and"
	LogicOr  = "or"
)

// MaxSelectColumns caps the width of a query definition.
const MaxSelectColumns = 100

// Constraint restricts one column of a query definition.
// Value is used by the binary operators, Values by "in"; the null checks
// use neither.
type Constraint struct {
	Column string   `json:"column"`
	Op     string   `json:"op"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// SortKey orders query output by one column.
type SortKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// QueryDef is the portable query definition clients build, save, and run.
// It is engine-neutral; the translate package renders it to SQL.
type QueryDef struct {
	Select []string     `json:"select"`
	From   string       `json:"from"`
	Where  []Constraint `json:"where,omitempty"`
	Logic  string       `json:"logic,omitempty"` // "and" (default) or "or"
	Sort   []SortKey    `json:"sort,omitempty"`
	Limit  int          `json:"limit,omitempty"`
}

// Validate checks structural validity of the definition.
func (q *QueryDef) Validate() error {
	if q == nil {
		return ErrValidation("query definition is empty")
	}
	if q.From == "" {
		return ErrValidation("query definition has no source table")
	}
	if len(q.Select) == 0 {
		return ErrValidation("query definition selects no columns")
	}
	if len(q.Select) > MaxSelectColumns {
		return ErrValidation("query definition selects %d columns; the maximum is %d", len(q.Select), MaxSelectColumns)
	}
	if q.Logic != "" && q.Logic != LogicAnd && q.Logic != LogicOr {
		return ErrValidation("unknown constraint logic %q", q.Logic)
	}
	if q.Limit < 0 {
		return ErrValidation("negative row limit %d", q.Limit)
	}
	for i := range q.Where {
		if err := q.Where[i].validate(); err != nil {
			return err
		}
	}
	for _, s := range q.Sort {
		if s.Column == "" {
			return ErrValidation("sort key has no column")
		}
	}
	return nil
}

func (c *Constraint) validate() error {
	if c.Column == "" {
		return ErrValidation("constraint has no column")
	}
	switch c.Op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpLike:
		if c.Value == "" && len(c.Values) > 0 {
			return ErrValidation("constraint on %q: operator %q takes a single value", c.Column, c.Op)
		}
	case OpIn:
		if len(c.Values) == 0 {
			return ErrValidation("constraint on %q: %q requires at least one value", c.Column, c.Op)
		}
	case OpNull, OpNotNull:
		if c.Value != "" || len(c.Values) > 0 {
			return ErrValidation("constraint on %q: %q takes no value", c.Column, c.Op)
		}
	default:
		return ErrValidation("constraint on %q: unknown operator %q", c.Column, c.Op)
	}
	return nil
}

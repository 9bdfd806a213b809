// Package translate renders portable query definitions into DuckDB SQL.
package translate

import (
	"fmt"
	"strings"

	"queryd/internal/domain"
)

// Compile-time check: Translator implements the domain port.
var _ domain.QueryTranslator = (*Translator)(nil)

var opSQL = map[string]string{
	domain.OpEq: "=",
	domain.OpNe: "<>",
	domain.OpLt: "<",
	domain.OpLe: "<=",
	domain.OpGt: ">",
	domain.OpGe: ">=",
}

// Translator turns a domain.QueryDef into a single SELECT statement.
// Identifiers are validated and quoted, values rendered as escaped string
// literals; DuckDB coerces literals to the column type at comparison time.
type Translator struct{}

// New creates a Translator.
func New() *Translator {
	return &Translator{}
}

// Translate renders def to SQL. Definitions that fail validation return a
// domain.ValidationError and no SQL.
func (t *Translator) Translate(def *domain.QueryDef) (string, error) {
	if err := def.Validate(); err != nil {
		return "", err
	}
	if err := ValidateQualifiedName(def.From); err != nil {
		return "", domain.ErrValidation("invalid source table %q: %v", def.From, err)
	}

	cols := make([]string, 0, len(def.Select))
	for _, c := range def.Select {
		if err := ValidateIdentifier(c); err != nil {
			return "", domain.ErrValidation("invalid column %q: %v", c, err)
		}
		cols = append(cols, QuoteIdentifier(c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), QuoteQualifiedName(def.From))

	if len(def.Where) > 0 {
		preds := make([]string, 0, len(def.Where))
		for i := range def.Where {
			p, err := renderConstraint(&def.Where[i])
			if err != nil {
				return "", err
			}
			preds = append(preds, p)
		}
		sep := " AND "
		if def.Logic == domain.LogicOr {
			sep = " OR "
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(preds, sep))
	}

	if len(def.Sort) > 0 {
		keys := make([]string, 0, len(def.Sort))
		for _, s := range def.Sort {
			if err := ValidateIdentifier(s.Column); err != nil {
				return "", domain.ErrValidation("invalid sort column %q: %v", s.Column, err)
			}
			k := QuoteIdentifier(s.Column)
			if s.Desc {
				k += " DESC"
			}
			keys = append(keys, k)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}

	if def.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", def.Limit)
	}

	return b.String(), nil
}

func renderConstraint(c *domain.Constraint) (string, error) {
	if err := ValidateIdentifier(c.Column); err != nil {
		return "", domain.ErrValidation("invalid constraint column %q: %v", c.Column, err)
	}
	col := QuoteIdentifier(c.Column)

	switch c.Op {
	case domain.OpLike:
		return fmt.Sprintf("%s LIKE %s", col, QuoteLiteral(c.Value)), nil
	case domain.OpIn:
		vals := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			vals = append(vals, QuoteLiteral(v))
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(vals, ", ")), nil
	case domain.OpNull:
		return col + " IS NULL", nil
	case domain.OpNotNull:
		return col + " IS NOT NULL", nil
	default:
		op, ok := opSQL[c.Op]
		if !ok {
			return "", domain.ErrValidation("constraint on %q: unknown operator %q", c.Column, c.Op)
		}
		return fmt.Sprintf("%s %s %s", col, op, QuoteLiteral(c.Value)), nil
	}
}

package policy

import (
	"fmt"
	"strconv"
)

// Expr is a parsed applicability expression node. Expressions are parsed once
// at catalog load time and evaluated via a tree walk against Facts.
//
// Evaluation fails closed: an unknown field or a type mismatch is an error,
// never a silent "not applicable".
type Expr interface {
	Eval(f *Facts) (bool, error)
	String() string
}

// Equals tests string or boolean equality between a fact field and a literal.
type Equals struct {
	Field  string
	Value  any // string or bool
	Negate bool
}

func (e *Equals) Eval(f *Facts) (bool, error) {
	got, err := f.Field(e.Field)
	if err != nil {
		return false, err
	}
	var match bool
	switch want := e.Value.(type) {
	case string:
		s, ok := got.(string)
		if !ok {
			return false, fmt.Errorf("field %q is not a string", e.Field)
		}
		match = s == want
	case bool:
		b, ok := got.(bool)
		if !ok {
			return false, fmt.Errorf("field %q is not a boolean", e.Field)
		}
		match = b == want
	default:
		return false, fmt.Errorf("unsupported literal type %T for field %q", e.Value, e.Field)
	}
	if e.Negate {
		return !match, nil
	}
	return match, nil
}

func (e *Equals) String() string {
	op := "=="
	if e.Negate {
		op = "!="
	}
	return fmt.Sprintf("%s %s %s", e.Field, op, formatLiteral(e.Value))
}

// In tests set membership of a string literal against a set-valued fact field
// (currently only targetMarkets).
type In struct {
	Value string
	Field string
}

func (e *In) Eval(f *Facts) (bool, error) {
	got, err := f.Field(e.Field)
	if err != nil {
		return false, err
	}
	set, ok := got.([]string)
	if !ok {
		return false, fmt.Errorf("field %q is not a set", e.Field)
	}
	for _, v := range set {
		if v == e.Value {
			return true, nil
		}
	}
	return false, nil
}

func (e *In) String() string {
	return fmt.Sprintf("%q in %s", e.Value, e.Field)
}

// And is the conjunction of two expressions.
type And struct {
	Left, Right Expr
}

func (e *And) Eval(f *Facts) (bool, error) {
	left, err := e.Left.Eval(f)
	if err != nil {
		return false, err
	}
	// No short-circuit on false: the right side must still be validated so an
	// unknown field cannot hide behind an always-false left operand.
	right, err := e.Right.Eval(f)
	if err != nil {
		return false, err
	}
	return left && right, nil
}

func (e *And) String() string {
	return fmt.Sprintf("(%s && %s)", e.Left, e.Right)
}

// Or is the disjunction of two expressions.
type Or struct {
	Left, Right Expr
}

func (e *Or) Eval(f *Facts) (bool, error) {
	left, err := e.Left.Eval(f)
	if err != nil {
		return false, err
	}
	right, err := e.Right.Eval(f)
	if err != nil {
		return false, err
	}
	return left || right, nil
}

func (e *Or) String() string {
	return fmt.Sprintf("(%s || %s)", e.Left, e.Right)
}

// Not negates an expression.
type Not struct {
	Inner Expr
}

func (e *Not) Eval(f *Facts) (bool, error) {
	v, err := e.Inner.Eval(f)
	if err != nil {
		return false, err
	}
	return !v, nil
}

func (e *Not) String() string {
	return fmt.Sprintf("!(%s)", e.Inner)
}

// CompareOp is a numeric comparison operator.
type CompareOp string

const (
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
)

// Compare tests a numeric fact field against a constant. No current fact
// field is numeric; the node exists so catalogs can add threshold rules
// without an expression-language change.
type Compare struct {
	Field string
	Op    CompareOp
	Value float64
}

func (e *Compare) Eval(f *Facts) (bool, error) {
	got, err := f.Field(e.Field)
	if err != nil {
		return false, err
	}
	n, ok := got.(float64)
	if !ok {
		return false, fmt.Errorf("field %q is not numeric", e.Field)
	}
	switch e.Op {
	case OpGT:
		return n > e.Value, nil
	case OpGTE:
		return n >= e.Value, nil
	case OpLT:
		return n < e.Value, nil
	case OpLTE:
		return n <= e.Value, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", e.Op)
	}
}

func (e *Compare) String() string {
	return fmt.Sprintf("%s %s %s", e.Field, e.Op, strconv.FormatFloat(e.Value, 'f', -1, 64))
}

// Fields returns the distinct fact field names an expression reads, used for
// the explainability "why" rationale.
func Fields(e Expr) []string {
	seen := map[string]struct{}{}
	var out []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *Equals:
			add(&out, seen, n.Field)
		case *In:
			add(&out, seen, n.Field)
		case *Compare:
			add(&out, seen, n.Field)
		case *And:
			walk(n.Left)
			walk(n.Right)
		case *Or:
			walk(n.Left)
			walk(n.Right)
		case *Not:
			walk(n.Inner)
		}
	}
	walk(e)
	return out
}

func add(out *[]string, seen map[string]struct{}, field string) {
	if _, ok := seen[field]; !ok {
		seen[field] = struct{}{}
		*out = append(*out, field)
	}
}

func formatLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
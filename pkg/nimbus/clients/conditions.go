package clients

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition guards a conditional write. It compiles to a DynamoDB condition
// expression and evaluates against in-memory items for local stores.
type Condition interface {
	Build() expression.ConditionBuilder
	// Evaluate checks the condition against the stored item, nil when absent
	Evaluate(item map[string]types.AttributeValue) (bool, error)
}

// Variable is one side of a comparison
type Variable interface {
	operand() expression.OperandBuilder
	resolve(item map[string]types.AttributeValue) (types.AttributeValue, bool)
	String() string
}

type column string

// Column refers to an attribute of the stored item
func Column(name string) Variable { return column(name) }

func (c column) operand() expression.OperandBuilder { return expression.Name(string(c)) }
func (c column) String() string                     { return string(c) }

func (c column) resolve(item map[string]types.AttributeValue) (types.AttributeValue, bool) {
	v, ok := item[string(c)]
	return v, ok
}

type literal struct {
	value interface{}
	av    types.AttributeValue
}

// Number is a numeric literal
func Number(n float64) Variable {
	return literal{value: n, av: &types.AttributeValueMemberN{Value: strconv.FormatFloat(n, 'f', -1, 64)}}
}

// String is a string literal
func String(s string) Variable {
	return literal{value: s, av: &types.AttributeValueMemberS{Value: s}}
}

// Bool is a boolean literal
func Bool(b bool) Variable {
	return literal{value: b, av: &types.AttributeValueMemberBOOL{Value: b}}
}

func (l literal) operand() expression.OperandBuilder { return expression.Value(l.value) }
func (l literal) String() string                     { return fmt.Sprint(l.value) }

func (l literal) resolve(map[string]types.AttributeValue) (types.AttributeValue, bool) {
	return l.av, true
}

type comparator int

const (
	equal comparator = iota
	notEqual
	lessThan
	lessThanOrEqual
	greaterThan
	greaterThanOrEqual
)

var comparatorSymbols = map[comparator]string{
	equal:              "=",
	notEqual:           "<>",
	lessThan:           "<",
	lessThanOrEqual:    "<=",
	greaterThan:        ">",
	greaterThanOrEqual: ">=",
}

type comparison struct {
	left, right Variable
	op          comparator
}

func Equal(left, right Variable) Condition       { return comparison{left, right, equal} }
func NotEqual(left, right Variable) Condition    { return comparison{left, right, notEqual} }
func LessThan(left, right Variable) Condition    { return comparison{left, right, lessThan} }
func GreaterThan(left, right Variable) Condition { return comparison{left, right, greaterThan} }

func LessThanOrEqual(left, right Variable) Condition {
	return comparison{left, right, lessThanOrEqual}
}

func GreaterThanOrEqual(left, right Variable) Condition {
	return comparison{left, right, greaterThanOrEqual}
}

func (c comparison) Build() expression.ConditionBuilder {
	l, r := c.left.operand(), c.right.operand()
	switch c.op {
	case notEqual:
		return expression.NotEqual(l, r)
	case lessThan:
		return expression.LessThan(l, r)
	case lessThanOrEqual:
		return expression.LessThanEqual(l, r)
	case greaterThan:
		return expression.GreaterThan(l, r)
	case greaterThanOrEqual:
		return expression.GreaterThanEqual(l, r)
	default:
		return expression.Equal(l, r)
	}
}

// Evaluate follows DynamoDB: a comparison with a missing attribute is false,
// and values of different types are never equal
func (c comparison) Evaluate(item map[string]types.AttributeValue) (bool, error) {
	left, ok := c.left.resolve(item)
	if !ok {
		return false, nil
	}
	right, ok := c.right.resolve(item)
	if !ok {
		return false, nil
	}

	cmp, comparable, err := compare(left, right)
	if err != nil {
		return false, fmt.Errorf("%s: %w", c, err)
	}
	if !comparable {
		switch c.op {
		case equal:
			return false, nil
		case notEqual:
			return true, nil
		default:
			return false, fmt.Errorf("%s: cannot order %T and %T", c, left, right)
		}
	}

	switch c.op {
	case equal:
		return cmp == 0, nil
	case notEqual:
		return cmp != 0, nil
	case lessThan:
		return cmp < 0, nil
	case lessThanOrEqual:
		return cmp <= 0, nil
	case greaterThan:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func (c comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.left, comparatorSymbols[c.op], c.right)
}

// compare orders two values of the same scalar type
func compare(a, b types.AttributeValue) (int, bool, error) {
	switch av := a.(type) {
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false, nil
		}
		x, err := strconv.ParseFloat(av.Value, 64)
		if err != nil {
			return 0, false, err
		}
		y, err := strconv.ParseFloat(bv.Value, 64)
		if err != nil {
			return 0, false, err
		}
		switch {
		case x < y:
			return -1, true, nil
		case x > y:
			return 1, true, nil
		}
		return 0, true, nil
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false, nil
		}
		switch {
		case av.Value < bv.Value:
			return -1, true, nil
		case av.Value > bv.Value:
			return 1, true, nil
		}
		return 0, true, nil
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok {
			return 0, false, nil
		}
		if av.Value == bv.Value {
			return 0, true, nil
		}
		return 1, true, nil
	default:
		return 0, false, nil
	}
}

type conjunction struct {
	conditions []Condition
	any        bool
}

// And holds when every condition holds
func And(first, second Condition, more ...Condition) Condition {
	return conjunction{conditions: append([]Condition{first, second}, more...)}
}

// Or holds when any condition holds
func Or(first, second Condition, more ...Condition) Condition {
	return conjunction{conditions: append([]Condition{first, second}, more...), any: true}
}

func (c conjunction) Build() expression.ConditionBuilder {
	rest := make([]expression.ConditionBuilder, 0, len(c.conditions)-2)
	for _, cond := range c.conditions[2:] {
		rest = append(rest, cond.Build())
	}
	if c.any {
		return expression.Or(c.conditions[0].Build(), c.conditions[1].Build(), rest...)
	}
	return expression.And(c.conditions[0].Build(), c.conditions[1].Build(), rest...)
}

func (c conjunction) Evaluate(item map[string]types.AttributeValue) (bool, error) {
	for _, cond := range c.conditions {
		ok, err := cond.Evaluate(item)
		if err != nil {
			return false, err
		}
		if ok == c.any {
			return ok, nil
		}
	}
	return !c.any, nil
}

type negation struct{ condition Condition }

// Not inverts a condition
func Not(condition Condition) Condition { return negation{condition} }

func (n negation) Build() expression.ConditionBuilder {
	return expression.Not(n.condition.Build())
}

func (n negation) Evaluate(item map[string]types.AttributeValue) (bool, error) {
	ok, err := n.condition.Evaluate(item)
	return !ok, err
}

type existence struct {
	column string
	exists bool
}

// AttributeExists holds when the stored item has the attribute
func AttributeExists(column string) Condition { return existence{column, true} }

// AttributeNotExists holds when nothing is stored or the item lacks the
// attribute. With the key attribute it guards against overwrites.
func AttributeNotExists(column string) Condition { return existence{column, false} }

func (e existence) Build() expression.ConditionBuilder {
	if e.exists {
		return expression.AttributeExists(expression.Name(e.column))
	}
	return expression.AttributeNotExists(expression.Name(e.column))
}

func (e existence) Evaluate(item map[string]types.AttributeValue) (bool, error) {
	_, ok := item[e.column]
	return ok == e.exists, nil
}

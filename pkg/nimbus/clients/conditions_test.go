package clients

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Evaluate(t *testing.T) {
	item := map[string]types.AttributeValue{
		"id":     &types.AttributeValueMemberS{Value: "u1"},
		"age":    &types.AttributeValueMemberN{Value: "30"},
		"name":   &types.AttributeValueMemberS{Value: "Ada"},
		"active": &types.AttributeValueMemberBOOL{Value: true},
	}

	tests := []struct {
		name      string
		condition Condition
		expected  bool
		wantErr   bool
	}{
		{"equal numbers", Equal(Column("age"), Number(30)), true, false},
		{"numbers compare numerically", GreaterThan(Column("age"), Number(4)), true, false},
		{"less than", LessThan(Column("age"), Number(18)), false, false},
		{"less than or equal", LessThanOrEqual(Column("age"), Number(30)), true, false},
		{"greater than or equal", GreaterThanOrEqual(Number(29), Column("age")), false, false},
		{"strings", Equal(Column("name"), String("Ada")), true, false},
		{"not equal", NotEqual(Column("name"), String("Bob")), true, false},
		{"bool", Equal(Column("active"), Bool(true)), true, false},
		{"missing attribute", Equal(Column("email"), String("x")), false, false},
		{"mixed types are unequal", Equal(Column("age"), String("30")), false, false},
		{"mixed types differ", NotEqual(Column("age"), String("30")), true, false},
		{"mixed types cannot be ordered", LessThan(Column("age"), String("30")), false, true},
		{"and", And(AttributeExists("id"), Equal(Column("active"), Bool(true))), true, false},
		{"and short circuits", And(AttributeExists("email"), LessThan(Column("age"), String("x"))), false, false},
		{"or", Or(AttributeExists("email"), GreaterThan(Column("age"), Number(18))), true, false},
		{"not", Not(AttributeNotExists("id")), true, false},
		{"attribute not exists", AttributeNotExists("email"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.condition.Evaluate(item)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCondition_EvaluateWithoutItem(t *testing.T) {
	ok, err := AttributeNotExists("id").Evaluate(nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Equal(Column("version"), Number(1)).Evaluate(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCondition_Build(t *testing.T) {
	condition := And(
		AttributeExists("id"),
		Or(GreaterThan(Column("age"), Number(18)), Equal(Column("admin"), Bool(true))),
		Not(Equal(Column("name"), String("root"))),
	)

	expr, err := expression.NewBuilder().WithCondition(condition.Build()).Build()
	require.NoError(t, err)

	require.NotNil(t, expr.Condition())
	assert.Contains(t, *expr.Condition(), "attribute_exists")
	assert.Contains(t, *expr.Condition(), "NOT")
	assert.Len(t, expr.Names(), 4)
	assert.Len(t, expr.Values(), 3)
	assert.Equal(t, "age > 18", GreaterThan(Column("age"), Number(18)).(comparison).String())
}

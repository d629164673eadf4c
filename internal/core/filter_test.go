package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

func testOutcomes() []trace.Outcome {
	prev := uint32(1)
	return []trace.Outcome{
		{Index: 0, Op: "toplevel", Surface: "R", Result: "ok"},
		{Index: 1, Op: "popup", Surface: "menu", Result: "ok"},
		{Index: 2, Op: "grab", Surface: "menu", Result: "ok"},
		{Index: 3, Op: "grab", Surface: "submenu", Result: "ok", PreviousSerial: &prev},
		{Index: 4, Op: "grab", Surface: "menu", Result: "not_the_topmost_popup", Error: "not the topmost popup"},
	}
}

func indexes(outcomes []trace.Outcome) []int {
	out := make([]int, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.Index)
	}
	return out
}

func TestParseFilter_Empty(t *testing.T) {
	expr, err := ParseFilter("")
	require.NoError(t, err)
	assert.Empty(t, expr.Conditions)
	assert.Len(t, FilterOutcomes(testOutcomes(), expr), 5)
}

func TestParseFilter_Operators(t *testing.T) {
	tests := []struct {
		expr  string
		field string
		op    FilterOp
		value string
	}{
		{"op=grab", "op", FilterOpEqual, "grab"},
		{"result!=ok", "result", FilterOpNotEqual, "ok"},
		{"surface~men", "surface", FilterOpContains, "men"},
		{"surface~=^sub", "surface", FilterOpRegex, "^sub"},
		{"index>2", "index", FilterOpGreater, "2"},
		{"index<2", "index", FilterOpLess, "2"},
		{"index>=2", "index", FilterOpGreaterEq, "2"},
		{"idx<=2", "index", FilterOpLessEq, "2"},
		{"Outcome = ok", "result", FilterOpEqual, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			require.Len(t, expr.Conditions, 1)
			cond := expr.Conditions[0]
			assert.Equal(t, tt.field, cond.Field)
			assert.Equal(t, tt.op, cond.Operator)
			assert.Equal(t, tt.value, cond.Value)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	for _, expr := range []string{
		"op",
		"colour=red",
		"index>two",
		"serial=x",
		"surface~=([",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr)
			assert.Error(t, err)
		})
	}
}

func TestFilterOutcomes(t *testing.T) {
	tests := []struct {
		expr string
		want []int
	}{
		{"op=grab", []int{2, 3, 4}},
		{"result!=ok", []int{4}},
		{"op=grab,result=ok", []int{2, 3}},
		{"surface~MENU", []int{1, 2, 3, 4}},
		{"surface~=^sub", []int{3}},
		{"index>=1,index<3", []int{1, 2}},
		{"serial=1", []int{3}},
		{"serial!=5", []int{3}},
		{"error~topmost", []int{4}},
		{"op=destroy", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, indexes(FilterOutcomes(testOutcomes(), expr)))
		})
	}
}

func TestFilterOutcomes_NilExpr(t *testing.T) {
	assert.Len(t, FilterOutcomes(testOutcomes(), nil), 5)
}

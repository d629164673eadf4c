// Package core provides filtering and lookup over replay reports.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // Field name: op, surface, result, error, index, serial
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex  *regexp.Regexp // Compiled regex for ~= operator
	intVal int            // Parsed value for numeric fields
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: op, surface, result, error, index, serial
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "op=grab" - grab events only
//   - "result!=ok" - events the popup core rejected
//   - "surface~=^wl_surface@3" - surfaces matching a regex
//   - "index>=10,index<20" - a window of the trace
//   - "serial>0" - grabs that returned a previous serial
func ParseFilter(expr string) (*FilterExpr, error) {
	if expr == "" {
		return &FilterExpr{}, nil
	}

	filter := &FilterExpr{
		Conditions: make([]FilterCondition, 0),
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "op=grab" or "surface~menu"
func parseCondition(s string) (FilterCondition, error) {
	// Try operators in order of specificity (longest first)
	operators := []FilterOp{
		FilterOpNotEqual,  // != (must be before =)
		FilterOpGreaterEq, // >= (must be before >)
		FilterOpLessEq,    // <= (must be before <)
		FilterOpRegex,     // ~= (must be before ~)
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}

			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "op", "operation":
		c.Field = "op"
	case "surface", "popup":
		c.Field = "surface"
	case "result", "outcome":
		c.Field = "result"
	case "error", "err":
		c.Field = "error"
	case "index", "idx", "event":
		c.Field = "index"
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid index value: %s", c.Value)
		}
		c.intVal = n
	case "serial", "prev", "previous_serial":
		c.Field = "serial"
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid serial value: %s", c.Value)
		}
		c.intVal = n
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if an outcome matches the filter expression.
// All conditions must match (AND logic).
func (f *FilterExpr) Match(o trace.Outcome) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(o) {
			return false
		}
	}
	return true
}

// Match tests if an outcome matches this single condition.
func (c *FilterCondition) Match(o trace.Outcome) bool {
	switch c.Field {
	case "op":
		return c.matchString(o.Op)
	case "surface":
		return c.matchString(o.Surface)
	case "result":
		return c.matchString(o.Result)
	case "error":
		return c.matchString(o.Error)
	case "index":
		return c.matchInt(o.Index)
	case "serial":
		// Outcomes without a previous serial never match
		if o.PreviousSerial == nil {
			return false
		}
		return c.matchInt(int(*o.PreviousSerial))
	default:
		return false
	}
}

// matchString matches a string field.
func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchInt matches an integer field with numeric comparison.
func (c *FilterCondition) matchInt(fieldValue int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.intVal
	case FilterOpNotEqual:
		return fieldValue != c.intVal
	case FilterOpGreater:
		return fieldValue > c.intVal
	case FilterOpLess:
		return fieldValue < c.intVal
	case FilterOpGreaterEq:
		return fieldValue >= c.intVal
	case FilterOpLessEq:
		return fieldValue <= c.intVal
	default:
		return false
	}
}

// FilterOutcomes returns the outcomes matching expr.
func FilterOutcomes(outcomes []trace.Outcome, expr *FilterExpr) []trace.Outcome {
	if expr == nil || len(expr.Conditions) == 0 {
		return outcomes
	}

	result := make([]trace.Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if expr.Match(o) {
			result = append(result, o)
		}
	}
	return result
}

package toast

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jmylchreest/toastui/internal/model"
)

// FilterOptions narrows a snapshot. Empty slices match everything.
type FilterOptions struct {
	Kinds  []model.Kind
	States []model.State
	Expr   *FilterExpr
	Limit  int // Maximum results (0=unlimited)
}

// Filter returns the entries matching opts, preserving order.
func Filter(list []model.Notification, opts FilterOptions) []model.Notification {
	result := make([]model.Notification, 0, len(list))

	for _, n := range list {
		if len(opts.Kinds) > 0 && !slices.Contains(opts.Kinds, n.Kind) {
			continue
		}
		if len(opts.States) > 0 && !slices.Contains(opts.States, n.State) {
			continue
		}
		if opts.Expr != nil && !opts.Expr.Match(n) {
			continue
		}
		result = append(result, n)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseKinds parses a comma-separated kind list.
func ParseKinds(s string) ([]model.Kind, error) {
	var kinds []model.Kind
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := model.ParseKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// ParseStates parses a comma-separated state list.
func ParseStates(s string) ([]model.State, error) {
	var states []model.State
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		st, err := model.ParseState(part)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

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

// FilterCondition is a single field comparison.
type FilterCondition struct {
	Field    string // kind, state, message, action, count
	Operator FilterOp
	Value    string

	regex    *regexp.Regexp
	countVal int
}

// FilterExpr is a list of conditions that must all match.
type FilterExpr struct {
	Conditions []FilterCondition
}

// ParseFilter parses a filter expression such as
// "kind=error,message~disk,count>=2". Conditions are comma-separated and
// ANDed together.
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if strings.TrimSpace(expr) == "" {
		return filter, nil
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

func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx <= 0 {
			continue
		}
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

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

func (c *FilterCondition) init() error {
	switch c.Field {
	case "kind", "type":
		c.Field = "kind"
		if c.Operator == FilterOpEqual || c.Operator == FilterOpNotEqual {
			k, err := model.ParseKind(c.Value)
			if err != nil {
				return err
			}
			c.Value = string(k)
		}
	case "state":
		if c.Operator == FilterOpEqual || c.Operator == FilterOpNotEqual {
			st, err := model.ParseState(c.Value)
			if err != nil {
				return err
			}
			c.Value = st.String()
		}
	case "message", "msg", "body":
		c.Field = "message"
	case "action", "label":
		c.Field = "action"
	case "count":
		v, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid count value: %w", err)
		}
		c.countVal = v
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

// Match reports whether every condition matches n.
func (f *FilterExpr) Match(n model.Notification) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(n) {
			return false
		}
	}
	return true
}

// Match reports whether n satisfies the condition.
func (c *FilterCondition) Match(n model.Notification) bool {
	switch c.Field {
	case "kind":
		return c.matchString(string(n.Kind))
	case "state":
		return c.matchString(n.State.String())
	case "message":
		return c.matchString(n.Message)
	case "action":
		label := ""
		if n.Action != nil {
			label = n.Action.Label
		}
		return c.matchString(label)
	case "count":
		return c.matchInt(n.Count)
	default:
		return false
	}
}

func (c *FilterCondition) matchString(v string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.Value
	case FilterOpNotEqual:
		return v != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(v)
	default:
		return false
	}
}

func (c *FilterCondition) matchInt(v int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.countVal
	case FilterOpNotEqual:
		return v != c.countVal
	case FilterOpGreater:
		return v > c.countVal
	case FilterOpLess:
		return v < c.countVal
	case FilterOpGreaterEq:
		return v >= c.countVal
	case FilterOpLessEq:
		return v <= c.countVal
	default:
		return false
	}
}

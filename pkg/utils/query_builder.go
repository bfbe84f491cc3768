package utils

import (
	"fmt"
	"strings"
)

type QueryBuildResult struct {
	Query string
	Args  []any
}

// WhereBuilder collects AND-ed conditions with positional postgres placeholders.
// Each condition uses "?" for its single argument, rewritten to $N on Add.
type WhereBuilder struct {
	clauses     []string
	args        []any
	argPosition int
}

func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argPosition: 1}
}

func (w *WhereBuilder) Add(condition string, arg any) *WhereBuilder {
	w.clauses = append(w.clauses, strings.Replace(condition, "?", fmt.Sprintf("$%d", w.argPosition), 1))
	w.args = append(w.args, arg)
	w.argPosition++
	return w
}

// AddRaw appends a condition that takes no argument.
func (w *WhereBuilder) AddRaw(condition string) *WhereBuilder {
	w.clauses = append(w.clauses, condition)
	return w
}

// Next returns the placeholder the next argument will occupy and reserves it.
func (w *WhereBuilder) Next(arg any) string {
	ph := fmt.Sprintf("$%d", w.argPosition)
	w.args = append(w.args, arg)
	w.argPosition++
	return ph
}

func (w *WhereBuilder) Clause() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *WhereBuilder) Args() []any {
	return w.args
}

func (w *WhereBuilder) Build(base, suffix string) *QueryBuildResult {
	return &QueryBuildResult{
		Query: base + w.Clause() + suffix,
		Args:  w.Args(),
	}
}

// Package domain contains the core domain models for the build engine:
// variants, dependency records, and the parsed form of build scripts.
package domain

import (
	"slices"
	"sort"
	"strings"
)

// Tool is one named entry in a variant's tool set. Concrete tools live in
// internal/tools; the domain only needs to clone them so a derived variant
// never shares mutable tool state with its origin.
type Tool interface {
	// Clone returns an independent copy of the tool.
	Clone() Tool
}

// Variant is a named build configuration: a set of keyword axes (for example
// platform or mode) and the tool set used when building under it. A variant is
// immutable after registration; derive new ones with Clone.
//
// Identity is by instance. Two variants with equal keyword sets are still
// distinct entities, and the engine's script-deduplication key uses the
// variant pointer, not its keywords.
type Variant struct {
	axes  map[string]string
	Tools map[string]Tool
}

// NewVariant creates a variant with the given keyword axes and an empty tool
// set.
func NewVariant(axes map[string]string) *Variant {
	copied := make(map[string]string, len(axes))
	for k, v := range axes {
		copied[k] = v
	}
	return &Variant{
		axes:  copied,
		Tools: make(map[string]Tool),
	}
}

// Axis returns the value of the named keyword axis and whether it is set.
func (v *Variant) Axis(name string) (string, bool) {
	value, ok := v.axes[name]
	return value, ok
}

// Axes returns the axis names in sorted order.
func (v *Variant) Axes() []string {
	names := make([]string, 0, len(v.axes))
	for name := range v.axes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Key returns the canonical registration key for the variant's keyword set.
// Two variants have equal keys exactly when their keyword sets are equal.
func (v *Variant) Key() string {
	var b strings.Builder
	for _, name := range v.Axes() {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(v.axes[name])
		b.WriteByte(';')
	}
	return b.String()
}

// String renders the variant for log output, e.g. "variant mode=debug platform=linux".
func (v *Variant) String() string {
	if len(v.axes) == 0 {
		return "variant (default)"
	}
	parts := make([]string, 0, len(v.axes))
	for _, name := range v.Axes() {
		parts = append(parts, name+"="+v.axes[name])
	}
	return "variant " + strings.Join(parts, " ")
}

// Clone creates a fully independent copy of the variant with the given axis
// overrides applied. The tool set is deep-cloned so mutating a derived
// variant's tools never affects the original.
func (v *Variant) Clone(overrides map[string]string) *Variant {
	clone := NewVariant(v.axes)
	for k, val := range overrides {
		clone.axes[k] = val
	}
	for name, tool := range v.Tools {
		clone.Tools[name] = tool.Clone()
	}
	return clone
}

// CloneTools returns an independent copy of the variant's tool set, keyed by
// tool name. The engine installs such a copy into each execution context.
func (v *Variant) CloneTools() map[string]Tool {
	tools := make(map[string]Tool, len(v.Tools))
	for name, tool := range v.Tools {
		tools[name] = tool.Clone()
	}
	return tools
}

// Matches reports whether every criterion in criteria accepts the
// corresponding axis of this variant. Axes not named in criteria are ignored.
func (v *Variant) Matches(criteria Criteria) bool {
	for name, criterion := range criteria {
		value, ok := v.axes[name]
		if !criterion.matches(value, ok) {
			return false
		}
	}
	return true
}

// Criterion is a typed matcher applied to a single keyword axis.
type Criterion struct {
	kind   criterionKind
	values []string
}

type criterionKind int

const (
	criterionExact criterionKind = iota
	criterionAnyOf
	criterionAny
)

// Exact matches an axis whose value equals v. An absent axis never matches.
func Exact(v string) Criterion {
	return Criterion{kind: criterionExact, values: []string{v}}
}

// AnyOf matches an axis whose value equals any element of vs.
func AnyOf(vs ...string) Criterion {
	return Criterion{kind: criterionAnyOf, values: slices.Clone(vs)}
}

// Any matches every present axis value. It corresponds to the "all" sentinel
// in criteria strings.
func Any() Criterion {
	return Criterion{kind: criterionAny}
}

func (c Criterion) matches(value string, present bool) bool {
	if !present {
		return false
	}
	switch c.kind {
	case criterionAny:
		return true
	case criterionExact:
		return value == c.values[0]
	case criterionAnyOf:
		return slices.Contains(c.values, value)
	}
	return false
}

// Criteria maps axis names to the criterion each must satisfy.
type Criteria map[string]Criterion

// ParseCriterion converts the string form of a criterion value: "all" becomes
// Any, a comma-separated list becomes AnyOf, anything else is an exact match.
func ParseCriterion(value string) Criterion {
	if value == "all" {
		return Any()
	}
	if strings.Contains(value, ",") {
		return AnyOf(strings.Split(value, ",")...)
	}
	return Exact(value)
}

// ParseCriteria parses "key=value" pairs, as given on the command line, into
// Criteria. Pairs without '=' are ignored by returning ok=false.
func ParseCriteria(pairs []string) (Criteria, bool) {
	criteria := make(Criteria, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, false
		}
		criteria[key] = ParseCriterion(value)
	}
	return criteria, true
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package elicitation

import (
	"sort"
	"strings"
)

// Tri-state answers for boolean properties.
const (
	Accept  = "accept"
	Decline = "decline"
	Cancel  = "cancel"
)

// IsTriState reports whether v is accept, decline or cancel.
func IsTriState(v string) bool {
	return v == Accept || v == Decline || v == Cancel
}

// IsBooleanToken reports whether v is an accepted value for a boolean property.
func IsBooleanToken(v string) bool {
	return IsTriState(v) || v == "true" || v == "false"
}

// =============================================================================
// FORM
// =============================================================================

// Field is one named value in declaration order.
type Field struct {
	Name  string
	Value string
}

// Form holds the working values for one pending request.
// A Form is owned by a single goroutine; copies come from Clone.
type Form struct {
	Request    *Request
	values     map[string]string
	order      []string
	submitting bool
}

// NewForm seeds one empty value per schema property. The chatId property is
// pre-filled from the request metadata, then the request, then currentChatID.
func NewForm(req *Request, currentChatID string) *Form {
	f := &Form{
		Request: req,
		values:  make(map[string]string),
	}
	for _, name := range req.RequestedSchema.Names() {
		value := ""
		if name == ChatIDField {
			value = firstNonEmpty(req.OwningChatID(), currentChatID)
		}
		f.set(name, value)
	}
	return f
}

// SetField stores a value. No validation happens here.
func (f *Form) SetField(name, value string) {
	f.set(name, value)
}

func (f *Form) set(name, value string) {
	if _, ok := f.values[name]; !ok {
		f.order = append(f.order, name)
	}
	f.values[name] = value
}

// Value returns the current value of a field.
func (f *Form) Value(name string) string {
	return f.values[name]
}

// Values returns a copy of the current values.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Fields returns the current values in declaration order.
func (f *Form) Fields() []Field {
	return f.Merged(nil)
}

// Merged returns the current values with overrides applied. Override keys
// that are not part of the form are appended in sorted order.
func (f *Form) Merged(overrides map[string]string) []Field {
	out := make([]Field, 0, len(f.order)+len(overrides))
	for _, name := range f.order {
		v := f.values[name]
		if o, ok := overrides[name]; ok {
			v = o
		}
		out = append(out, Field{Name: name, Value: v})
	}

	var extra []string
	for name := range overrides {
		if _, ok := f.values[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, Field{Name: name, Value: overrides[name]})
	}
	return out
}

// =============================================================================
// VALIDATION
// =============================================================================

// CanSubmit reports whether every required field is filled and no
// submission is in flight.
func (f *Form) CanSubmit() bool {
	return f.CanSubmitWith(nil)
}

// CanSubmitWith is CanSubmit evaluated with overrides applied.
func (f *Form) CanSubmitWith(overrides map[string]string) bool {
	if f.submitting {
		return false
	}
	return len(f.missing(overrides)) == 0
}

// Missing returns the required fields that still need a valid value.
func (f *Form) Missing() []string {
	return f.missing(nil)
}

func (f *Form) missing(overrides map[string]string) []string {
	var out []string
	for _, name := range f.Request.RequestedSchema.Required {
		v, ok := overrides[name]
		if !ok {
			v = f.values[name]
		}
		prop, _ := f.Request.RequestedSchema.Property(name)
		switch {
		case prop.IsBoolean() && !IsBooleanToken(v):
			out = append(out, name)
		case strings.TrimSpace(v) == "":
			out = append(out, name)
		}
	}
	return out
}

// BooleanOnly returns the single boolean property when the form asks for
// nothing else besides chatId.
func (f *Form) BooleanOnly() (string, bool) {
	var (
		name  string
		count int
	)
	schema := f.Request.RequestedSchema
	for _, n := range schema.Names() {
		if n == ChatIDField {
			continue
		}
		count++
		name = n
	}
	if count != 1 {
		return "", false
	}
	if p, _ := schema.Property(name); !p.IsBoolean() {
		return "", false
	}
	return name, true
}

// Prompts returns the properties the user must answer, in order.
func (f *Form) Prompts() []string {
	var out []string
	for _, n := range f.Request.RequestedSchema.Names() {
		if n != ChatIDField {
			out = append(out, n)
		}
	}
	return out
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Summary joins every non-chatId value for display as the user's answer.
func Summary(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, fld := range fields {
		if fld.Name == ChatIDField {
			continue
		}
		parts = append(parts, fld.Value)
	}
	return strings.Join(parts, ", ")
}

// Response is the body of an elicitation-response request.
type Response struct {
	ElicitationResponse ResponseBody `json:"elicitationResponse"`
}

// ResponseBody names the request being answered and carries every field.
type ResponseBody struct {
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
}

// Response builds the resume payload with overrides applied.
func (f *Form) Response(overrides map[string]string) Response {
	fields := make(map[string]string)
	for _, fld := range f.Merged(overrides) {
		fields[fld.Name] = fld.Value
	}
	return Response{ElicitationResponse: ResponseBody{
		Name:   f.Request.Name,
		Fields: fields,
	}}
}

// BeginSubmit marks the form as submitted. It returns false if it already
// was; a form is answered at most once.
func (f *Form) BeginSubmit() bool {
	if f.submitting {
		return false
	}
	f.submitting = true
	return true
}

// Clone returns an independent copy sharing the immutable request.
func (f *Form) Clone() *Form {
	c := &Form{
		Request:    f.Request,
		values:     f.Values(),
		order:      append([]string(nil), f.order...),
		submitting: f.submitting,
	}
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

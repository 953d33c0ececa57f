// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package elicitation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ChatIDField is the reserved property pre-filled with the owning chat.
const ChatIDField = "chatId"

// Property types that change form behavior.
const (
	TypeBoolean = "boolean"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
)

var (
	// ErrMissingID is returned when a request has no elicitationId.
	ErrMissingID = errors.New("elicitation request has no elicitationId")
)

// =============================================================================
// REQUEST
// =============================================================================

// Request is the payload of an "elicitation" frame.
type Request struct {
	ElicitationID   string `json:"elicitationId"`
	ChatID          string `json:"chatId"`
	Name            string `json:"name"`
	Message         string `json:"message"`
	RequestedSchema Schema `json:"requestedSchema"`
	Meta            *Meta  `json:"_meta,omitempty"`
}

// Meta carries protocol metadata attached to a request.
type Meta struct {
	ChatID string `json:"chatId,omitempty"`
}

// ParseRequest decodes an elicitation frame payload.
func ParseRequest(data string) (*Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &req); err != nil {
		return nil, fmt.Errorf("decode elicitation: %w", err)
	}
	if req.ElicitationID == "" {
		return nil, ErrMissingID
	}
	return &req, nil
}

// OwningChatID returns the chat the request belongs to, preferring the
// protocol metadata over the top-level field.
func (r *Request) OwningChatID() string {
	if r.Meta != nil && r.Meta.ChatID != "" {
		return r.Meta.ChatID
	}
	return r.ChatID
}

// =============================================================================
// SCHEMA
// =============================================================================

// Property describes one requested field.
type Property struct {
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Format      string   `json:"format,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// IsBoolean reports whether the property is boolean-typed.
func (p Property) IsBoolean() bool {
	return p.Type == TypeBoolean
}

// Label returns the title, falling back to the property name.
func (p Property) Label(name string) string {
	if p.Title != "" {
		return p.Title
	}
	return name
}

// Schema is the flat object schema of a request. Property order follows the
// order in which the server listed them.
type Schema struct {
	Properties map[string]Property
	Required   []string
	order      []string
}

// Names returns property names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Property returns the named property.
func (s Schema) Property(name string) (Property, bool) {
	p, ok := s.Properties[name]
	return p, ok
}

// IsRequired reports whether name is listed as required.
func (s Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Add appends a property, keeping declaration order.
func (s *Schema) Add(name string, p Property) {
	if s.Properties == nil {
		s.Properties = make(map[string]Property)
	}
	if _, exists := s.Properties[name]; !exists {
		s.order = append(s.order, name)
	}
	s.Properties[name] = p
}

type schemaWire struct {
	Type       string          `json:"type,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Required   []string        `json:"required,omitempty"`
}

// UnmarshalJSON decodes the schema keeping property order.
func (s *Schema) UnmarshalJSON(b []byte) error {
	var w schemaWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*s = Schema{Required: w.Required, Properties: make(map[string]Property)}
	if len(w.Properties) == 0 || bytes.Equal(bytes.TrimSpace(w.Properties), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(w.Properties))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema properties: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema properties: unexpected key %v", tok)
		}
		var p Property
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("schema property %q: %w", name, err)
		}
		s.Add(name, p)
	}
	return nil
}

// MarshalJSON encodes the schema with properties in declaration order.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"object","properties":{`)
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.Properties[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	if len(s.Required) > 0 {
		req, err := json.Marshal(s.Required)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"required":`)
		buf.Write(req)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

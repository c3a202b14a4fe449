package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleSeller
}

// UnmarshalJSON accepts any scalar so that a mistyped role such as 5 is kept
// as "5" and reported as an invalid role instead of failing the whole file.
func (r *Role) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Role(s)
		return nil
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("role must be a string, got %s", data)
	}
	*r = Role(data)
	return nil
}

type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionUpdate ActionType = "update"
	ActionRemove ActionType = "remove"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionAdd, ActionUpdate, ActionRemove:
		return true
	}
	return false
}

// OrderItem is a single line of an order action. Only Name is structurally
// required; a nil field means the key was absent from the source document.
type OrderItem struct {
	Name     *string  `json:"name,omitempty" jsonschema:"description=Item name, matched case-insensitively"`
	Quantity *float64 `json:"quantity,omitempty" jsonschema:"description=Defaults to 1 when absent"`
	Price    *float64 `json:"price,omitempty" jsonschema:"description=Unit price"`
}

// QuantityOr returns the item quantity or fallback when it was not given.
func (i OrderItem) QuantityOr(fallback float64) float64 {
	if i.Quantity == nil {
		return fallback
	}
	return *i.Quantity
}

type OrderAction struct {
	Type  ActionType  `json:"type" jsonschema:"enum=add,enum=update,enum=remove"`
	Items []OrderItem `json:"items"`
}

type Payment struct {
	Amount *float64 `json:"amount,omitempty"`
	Change *float64 `json:"change,omitempty"`
	Method *string  `json:"method,omitempty"`
}

// Message is one utterance of a scenario. Keys the model does not know about
// are kept in Extra so that a load/save round trip does not lose them.
type Message struct {
	ID              string       `json:"id"`
	Role            Role         `json:"role" jsonschema:"enum=customer,enum=seller"`
	Text            string       `json:"text"`
	AudioPath       string       `json:"audioPath,omitempty"`
	Filename        string       `json:"filename,omitempty"`
	OrderAction     *OrderAction `json:"orderAction,omitempty"`
	PaymentReceived *Payment     `json:"paymentReceived,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
	// Malformed lists known keys whose value had the wrong shape. Those
	// fields are left at their zero value.
	Malformed []FieldError `json:"-"`
}

// FieldError is a known message key that could not be decoded.
type FieldError struct {
	Field string
	Raw   json.RawMessage
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("invalid '%s' field: %v", e.Field, e.Err)
}

func (e FieldError) Unwrap() error { return e.Err }

// IsMalformed reports whether the value of the given key could not be decoded.
func (m Message) IsMalformed(field string) bool {
	for _, malformed := range m.Malformed {
		if malformed.Field == field {
			return true
		}
	}
	return false
}

var knownMessageKeys = []string{"id", "role", "text", "audioPath", "filename", "orderAction", "paymentReceived"}

// UnmarshalJSON decodes every known key on its own, so one badly typed value
// only costs that field and not the whole scenario file.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	decoded := Message{}
	targets := map[string]func(json.RawMessage) error{
		"id":              decodeInto(&decoded.ID),
		"role":            decodeInto(&decoded.Role),
		"text":            decodeInto(&decoded.Text),
		"audioPath":       decodeInto(&decoded.AudioPath),
		"filename":        decodeInto(&decoded.Filename),
		"orderAction":     decodeInto(&decoded.OrderAction),
		"paymentReceived": decodeInto(&decoded.PaymentReceived),
	}
	for _, key := range knownMessageKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		delete(fields, key)
		if err := targets[key](raw); err != nil {
			decoded.Malformed = append(decoded.Malformed, FieldError{Field: key, Raw: raw, Err: err})
		}
	}
	if len(fields) > 0 {
		decoded.Extra = fields
	}
	*m = decoded
	return nil
}

// decodeInto only writes dst when raw decodes cleanly.
func decodeInto[T any](dst *T) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		*dst = value
		return nil
	}
}

func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	known, err := json.Marshal(plain(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 && len(m.Malformed) == 0 {
		return known, nil
	}

	fields := make(map[string]json.RawMessage, len(m.Extra)+len(knownMessageKeys))
	for key, value := range m.Extra {
		fields[key] = value
	}
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, fmt.Errorf("failed to merge extra message fields: %w", err)
	}
	for _, malformed := range m.Malformed {
		fields[malformed.Field] = malformed.Raw
	}
	return json.Marshal(fields)
}

// MessageID returns the message id, falling back to its position in the
// scenario when the id is missing.
func MessageID(msg Message, index int) string {
	if msg.ID != "" {
		return msg.ID
	}
	return "msg-" + strconv.Itoa(index)
}

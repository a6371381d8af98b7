package service

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// UnknownFieldError is a request body key that no field accepts.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// snakeKey maps a camelCase key such as scentId to scent_id. Keys that are
// already snake_case come back unchanged.
func snakeKey(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func jsonKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

// decodeObject decodes a JSON object into dst, a pointer to a struct without
// its own UnmarshalJSON. Keys are accepted in snake_case or camelCase. Any
// key that matches no field, or a field sent under both spellings, is an
// UnknownFieldError.
func decodeObject(data []byte, dst interface{}) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	known := jsonKeys(reflect.TypeOf(dst).Elem())
	normalized := make(map[string]json.RawMessage, len(raw))
	for key, value := range raw {
		name := snakeKey(key)
		if !known[name] {
			return &UnknownFieldError{Field: key}
		}
		if _, dup := normalized[name]; dup {
			return &UnknownFieldError{Field: key}
		}
		normalized[name] = value
	}

	body, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func (in *CustomizationInput) UnmarshalJSON(data []byte) error {
	type plain CustomizationInput
	var out plain
	if err := decodeObject(data, &out); err != nil {
		return err
	}
	*in = CustomizationInput(out)
	return nil
}

func (in *AddItemInput) UnmarshalJSON(data []byte) error {
	type plain AddItemInput
	var out plain
	if err := decodeObject(data, &out); err != nil {
		return err
	}
	*in = AddItemInput(out)
	return nil
}

func (req *CheckoutRequest) UnmarshalJSON(data []byte) error {
	type plain CheckoutRequest
	var out plain
	if err := decodeObject(data, &out); err != nil {
		return err
	}
	*req = CheckoutRequest(out)
	return nil
}

func (p *PaymentDetails) UnmarshalJSON(data []byte) error {
	type plain PaymentDetails
	var out plain
	if err := decodeObject(data, &out); err != nil {
		return err
	}
	*p = PaymentDetails(out)
	return nil
}

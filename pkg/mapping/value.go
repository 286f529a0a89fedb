package mapping

import (
	"encoding/json"
	"fmt"
)

// Value is a normalized controller value. Which field is meaningful depends on Type.
type Value struct {
	Type   Type
	Float  float64 // continuous
	Bool   bool    // boolean
	Option int     // category: the option's normalized value
}

// ContinuousValue wraps a normalized continuous value
func ContinuousValue(f float64) Value { return Value{Type: Continuous, Float: f} }

// BooleanValue wraps a switch state
func BooleanValue(b bool) Value { return Value{Type: Boolean, Bool: b} }

// CategoryValue wraps a category option value
func CategoryValue(v int) Value { return Value{Type: Category, Option: v} }

// Number returns the value as a float, the form a model frame would carry
func (v Value) Number() float64 {
	switch v.Type {
	case Boolean:
		if v.Bool {
			return 1
		}
		return 0
	case Category:
		return float64(v.Option)
	default:
		return v.Float
	}
}

func (v Value) String() string {
	switch v.Type {
	case Boolean:
		return fmt.Sprintf("%t", v.Bool)
	case Category:
		return fmt.Sprintf("option(%d)", v.Option)
	default:
		return fmt.Sprintf("%.5f", v.Float)
	}
}

type valueJSON struct {
	Type  Type            `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as {"type": ..., "value": ...}
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Type {
	case Boolean:
		payload = v.Bool
	case Category:
		payload = v.Option
	case Continuous:
		payload = v.Float
	default:
		return nil, fmt.Errorf("cannot encode value of type %q", v.Type)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Type: v.Type, Value: raw})
}

// UnmarshalJSON decodes the form produced by MarshalJSON
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Value{Type: in.Type}
	var err error
	switch in.Type {
	case Boolean:
		err = json.Unmarshal(in.Value, &out.Bool)
	case Category:
		err = json.Unmarshal(in.Value, &out.Option)
	case Continuous:
		err = json.Unmarshal(in.Value, &out.Float)
	default:
		return fmt.Errorf("unknown value type %q", in.Type)
	}
	if err != nil {
		return fmt.Errorf("decoding %s value: %w", in.Type, err)
	}
	*v = out
	return nil
}

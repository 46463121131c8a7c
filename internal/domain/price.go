package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PriceValue is a monetary amount that tolerates the two encodings found in
// catalog documents: a JSON number or a string such as "5.50".
type PriceValue float64

// Float64 returns the underlying amount.
func (p PriceValue) Float64() float64 { return float64(p) }

// MarshalJSON always emits a number with two decimal places preserved.
func (p PriceValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(p))
}

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (p *PriceValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) >= 2 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		value, err := ParsePrice(s)
		if err != nil {
			return err
		}
		*p = PriceValue(value)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = PriceValue(f)
	return nil
}

// ParsePrice coerces a stored price into a float64 amount. Accepted inputs
// are numeric types and decimal strings; anything else is an error so the
// caller decides whether to reject or degrade.
func ParsePrice(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("price is missing")
	case float64:
		return validPrice(v)
	case float32:
		return validPrice(float64(v))
	case int:
		return validPrice(float64(v))
	case int64:
		return validPrice(float64(v))
	case PriceValue:
		return validPrice(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("parse price %q: %w", v.String(), err)
		}
		return validPrice(f)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("price is empty")
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("parse price %q: %w", v, err)
		}
		return validPrice(f)
	default:
		return 0, fmt.Errorf("unsupported price type %T", raw)
	}
}

func validPrice(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("price is not a finite number")
	}
	if f < 0 {
		return 0, fmt.Errorf("price is negative")
	}
	return f, nil
}

// CartTotal sums UnitPrice multiplied by Quantity across lines. Lines with
// a non-finite stored price contribute zero; persisted carts must keep
// rendering even when a legacy snapshot carries a bad value.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		price := item.UnitPrice
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			continue
		}
		if item.Quantity <= 0 {
			continue
		}
		total += price * float64(item.Quantity)
	}
	return total
}

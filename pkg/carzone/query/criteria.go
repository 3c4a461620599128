// Package query turns sparse listing filters into an approved-only predicate
// that can be rendered to SQL or evaluated against loaded listings.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidCriteria is returned when a filter value cannot be parsed.
var ErrInvalidCriteria = errors.New("invalid filter criteria")

// Filter keys accepted from callers.
const (
	KeyMaker        = "maker"
	KeyModel        = "model"
	KeyFuelType     = "fuel_type"
	KeyTransmission = "transmission"
	KeyMinPrice     = "min_price"
	KeyMaxPrice     = "max_price"
	KeyState        = "state"
	KeyCity         = "city"
)

// FilterCriteria is a sparse set of constraints. Empty strings and zero prices
// are unset.
type FilterCriteria struct {
	Maker        string `json:"maker,omitempty"`
	Model        string `json:"model,omitempty"`
	FuelType     string `json:"fuel_type,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	MinPrice     int64  `json:"min_price,omitempty"`
	MaxPrice     int64  `json:"max_price,omitempty"`
	State        string `json:"state,omitempty"`
	City         string `json:"city,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (c FilterCriteria) IsEmpty() bool {
	return c == FilterCriteria{}
}

// FromMap builds criteria from a key/value mapping. Unknown keys are ignored.
func FromMap(m map[string]string) (FilterCriteria, error) {
	var c FilterCriteria
	for key, raw := range m {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		switch key {
		case KeyMaker:
			c.Maker = value
		case KeyModel:
			c.Model = value
		case KeyFuelType:
			c.FuelType = value
		case KeyTransmission:
			c.Transmission = value
		case KeyState:
			c.State = value
		case KeyCity:
			c.City = value
		case KeyMinPrice:
			price, err := parsePrice(key, value)
			if err != nil {
				return FilterCriteria{}, err
			}
			c.MinPrice = price
		case KeyMaxPrice:
			price, err := parsePrice(key, value)
			if err != nil {
				return FilterCriteria{}, err
			}
			c.MaxPrice = price
		}
	}
	return c, nil
}

// FromValues builds criteria from URL query values, using the first value of
// each key.
func FromValues(vars url.Values) (FilterCriteria, error) {
	m := make(map[string]string, len(vars))
	for key := range vars {
		m[key] = vars.Get(key)
	}
	return FromMap(m)
}

func parsePrice(key, value string) (int64, error) {
	price, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number: %q", ErrInvalidCriteria, key, value)
	}
	if price < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative: %d", ErrInvalidCriteria, key, price)
	}
	return price, nil
}

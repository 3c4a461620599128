// Package valuation estimates the resale price of a used car from its catalog
// base price by applying a fixed chain of adjustments. It performs no I/O.
package valuation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/catalog"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
)

var (
	// ErrInvalidInput is returned for missing or negative numeric inputs.
	ErrInvalidInput = errors.New("invalid valuation input")
	// ErrUnknownModel is returned when the catalog has no base price for a maker and model.
	ErrUnknownModel = errors.New("unknown maker or model")
)

// Stage names, in application order.
const (
	StageAge          = "age"
	StageMileage      = "mileage"
	StageFuel         = "fuel_type"
	StageTransmission = "transmission"
	StageCondition    = "condition"
	StageOwnership    = "ownership"
	StageLocation     = "location"
	StageBodyStyle    = "body_style"
	StageDriveWheels  = "drive_wheels"
)

// Input describes the car being valued.
type Input struct {
	Maker        string `json:"maker"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	KmDriven     int64  `json:"km_driven"`
	FuelType     string `json:"fuel_type"`
	Transmission string `json:"transmission"`
	Condition    string `json:"condition"`
	BodyStyle    string `json:"body_style"`
	DriveWheels  string `json:"drive_wheels"`
	State        string `json:"state"`
	City         string `json:"city"`
	Ownership    string `json:"ownership"`
}

// Result is a priced estimate. Warnings carry data-quality signals such as
// category values missing from the catalog; they never fail an estimate.
type Result struct {
	BasePrice   int64            `json:"base_price"`
	Price       int64            `json:"price"`
	Adjustments []dal.Adjustment `json:"adjustments"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// Engine applies the catalog's adjustment tables.
type Engine struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the source of the current year.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine returns an engine over c.
func NewEngine(c *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: c, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EstimatePrice returns the estimated price for a known base price.
func (e *Engine) EstimatePrice(basePrice int64, in Input) (int64, error) {
	r, err := e.Estimate(basePrice, in)
	if err != nil {
		return 0, err
	}
	return r.Price, nil
}

// EstimateFor resolves the base price of in.Maker / in.Model from the catalog
// and estimates it.
func (e *Engine) EstimateFor(in Input) (Result, error) {
	base, ok := e.catalog.BasePrice(in.Maker, in.Model)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s %s", ErrUnknownModel, in.Maker, in.Model)
	}
	return e.Estimate(base, in)
}

// Estimate applies every stage to basePrice.
func (e *Engine) Estimate(basePrice int64, in Input) (Result, error) {
	if err := validate(basePrice, in); err != nil {
		return Result{}, err
	}

	r := Result{BasePrice: basePrice}
	total := float64(basePrice)
	apply := func(stage, key string, factor float64) {
		total *= factor
		r.Adjustments = append(r.Adjustments, dal.Adjustment{Stage: stage, Key: key, Factor: factor})
	}
	lookup := func(stage, key string, table map[string]float64, optional bool) {
		if key == "" && optional {
			return
		}
		factor, ok := table[key]
		if !ok {
			r.Warnings = append(r.Warnings, fmt.Sprintf("unknown %s %q, using neutral factor", stage, key))
			factor = 1
		}
		apply(stage, key, factor)
	}

	age := e.age(in.Year)
	apply(StageAge, fmt.Sprintf("%d years", age), e.depreciation(age))
	apply(StageMileage, fmt.Sprintf("%d km", in.KmDriven), e.mileage(age, in.KmDriven))
	lookup(StageFuel, in.FuelType, e.catalog.FuelTypes, false)
	lookup(StageTransmission, in.Transmission, e.catalog.Transmissions, false)
	lookup(StageCondition, in.Condition, e.catalog.Conditions, false)
	lookup(StageOwnership, in.Ownership, e.catalog.Ownership, false)

	region, ok := e.catalog.Regions[in.State]
	switch {
	case !ok:
		r.Warnings = append(r.Warnings, fmt.Sprintf("unknown %s %q, using neutral factor", StageLocation, in.State))
		apply(StageLocation, in.State, 1)
	default:
		if in.City != "" && !e.catalog.HasCity(in.State, in.City) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("city %q is not in %s", in.City, in.State))
		}
		apply(StageLocation, in.State, region.Multiplier)
	}

	lookup(StageBodyStyle, in.BodyStyle, e.catalog.BodyStyles, true)
	lookup(StageDriveWheels, in.DriveWheels, e.catalog.DriveWheels, true)

	r.Price = int64(math.Max(0, math.Round(total)))
	return r, nil
}

func validate(basePrice int64, in Input) error {
	switch {
	case basePrice < 0:
		return fmt.Errorf("%w: base price %d is negative", ErrInvalidInput, basePrice)
	case in.Year <= 0:
		return fmt.Errorf("%w: manufacture year %d", ErrInvalidInput, in.Year)
	case in.KmDriven < 0:
		return fmt.Errorf("%w: odometer reading %d is negative", ErrInvalidInput, in.KmDriven)
	}
	return nil
}

// age is the number of full years since manufacture. Cars dated in the future
// count as new.
func (e *Engine) age(year int) int {
	age := e.now().Year() - year
	if age < 0 {
		return 0
	}
	return age
}

// depreciation compounds the bracket rate of every year of age.
func (e *Engine) depreciation(age int) float64 {
	d := e.catalog.Depreciation
	factor := 1.0
	for y := 1; y <= age; y++ {
		factor *= 1 - rateForYear(d.Brackets, y)
		if factor <= d.Floor {
			return d.Floor
		}
	}
	return factor
}

func rateForYear(brackets []catalog.Bracket, year int) float64 {
	for _, b := range brackets {
		if year >= b.FromYear && (b.ToYear == 0 || year <= b.ToYear) {
			return b.Rate
		}
	}
	return 0
}

// mileage charges a rate per 1000 km above an allowance that grows with age.
func (e *Engine) mileage(age int, km int64) float64 {
	m := e.catalog.Mileage
	years := int64(age)
	if years < 1 {
		years = 1
	}
	excess := km - m.AnnualAllowanceKm*years
	if excess <= 0 {
		return 1
	}
	factor := 1 - float64(excess)/1000*m.RatePer1000Km
	return math.Max(factor, m.Floor)
}

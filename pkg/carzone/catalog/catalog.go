// Package catalog holds the read-only reference data the marketplace prices and
// validates against: base prices per maker and model, regions with their cities
// and demand multipliers, and the multiplier tables of the valuation engine.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// LakhRupees is the number of rupees in one lakh. Catalog base prices are stored
// in lakhs.
const LakhRupees = 100000

//go:embed default.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when catalog data fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Region describes a state, the cities that belong to it and its demand
// multiplier.
type Region struct {
	Cities     []string `yaml:"cities" json:"cities"`
	Multiplier float64  `yaml:"multiplier" json:"multiplier"`
}

// Bracket is a depreciation rate that applies to every year of age in
// [FromYear, ToYear]. ToYear 0 leaves the bracket open ended.
type Bracket struct {
	FromYear int     `yaml:"from_year" json:"from_year"`
	ToYear   int     `yaml:"to_year" json:"to_year"`
	Rate     float64 `yaml:"rate" json:"rate"`
}

// Depreciation is the age curve.
type Depreciation struct {
	Brackets []Bracket `yaml:"brackets" json:"brackets"`
	Floor    float64   `yaml:"floor" json:"floor"`
}

// MileagePolicy is the odometer penalty.
type MileagePolicy struct {
	AnnualAllowanceKm int64   `yaml:"annual_allowance_km" json:"annual_allowance_km"`
	RatePer1000Km     float64 `yaml:"rate_per_1000_km" json:"rate_per_1000_km"`
	Floor             float64 `yaml:"floor" json:"floor"`
}

// ConditionOrder lists the condition grades from best to worst.
var ConditionOrder = []string{"Excellent", "Good", "Fair", "Poor"}

// OwnershipOrder lists the ownership grades from fewest to most owners.
var OwnershipOrder = []string{"First Owner", "Second Owner", "Third Owner", "Fourth Owner", "Fifth Owner or More"}

// Catalog is shared read-only by its users once loaded. Accessors return
// copies, callers must not write to the exported tables.
type Catalog struct {
	Makes         map[string]map[string]float64 `yaml:"makes" json:"makes"`
	Regions       map[string]Region             `yaml:"regions" json:"regions"`
	FuelTypes     map[string]float64            `yaml:"fuel_types" json:"fuel_types"`
	Transmissions map[string]float64            `yaml:"transmissions" json:"transmissions"`
	Conditions    map[string]float64            `yaml:"conditions" json:"conditions"`
	Ownership     map[string]float64            `yaml:"ownership" json:"ownership"`
	BodyStyles    map[string]float64            `yaml:"body_styles" json:"body_styles"`
	DriveWheels   map[string]float64            `yaml:"drive_wheels" json:"drive_wheels"`
	Variants      []string                      `yaml:"variants" json:"variants"`
	Features      []string                      `yaml:"features" json:"features"`
	Depreciation  Depreciation                  `yaml:"depreciation" json:"depreciation"`
	Mileage       MileagePolicy                 `yaml:"mileage" json:"mileage"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path loads the bundled default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the tables the valuation engine relies on.
func (c *Catalog) Validate() error {
	if len(c.Makes) == 0 {
		return fmt.Errorf("%w: no makes", ErrInvalidCatalog)
	}
	for maker, models := range c.Makes {
		for model, lakhs := range models {
			if lakhs <= 0 {
				return fmt.Errorf("%w: base price of %s %s must be positive", ErrInvalidCatalog, maker, model)
			}
		}
	}
	for state, r := range c.Regions {
		if r.Multiplier <= 0 {
			return fmt.Errorf("%w: multiplier of region %s must be positive", ErrInvalidCatalog, state)
		}
	}
	tables := map[string]map[string]float64{
		"fuel_types":    c.FuelTypes,
		"transmissions": c.Transmissions,
		"conditions":    c.Conditions,
		"ownership":     c.Ownership,
		"body_styles":   c.BodyStyles,
		"drive_wheels":  c.DriveWheels,
	}
	for name, table := range tables {
		for key, m := range table {
			if m <= 0 {
				return fmt.Errorf("%w: %s[%s] must be positive", ErrInvalidCatalog, name, key)
			}
		}
	}
	if err := decreasing("conditions", c.Conditions, ConditionOrder); err != nil {
		return err
	}
	if err := decreasing("ownership", c.Ownership, OwnershipOrder); err != nil {
		return err
	}

	d := c.Depreciation
	if d.Floor <= 0 || d.Floor > 1 {
		return fmt.Errorf("%w: depreciation floor must be in (0, 1]", ErrInvalidCatalog)
	}
	next := 1
	for i, b := range d.Brackets {
		if b.FromYear != next {
			return fmt.Errorf("%w: depreciation bracket %d must start at year %d", ErrInvalidCatalog, i, next)
		}
		if b.Rate < 0 || b.Rate >= 1 {
			return fmt.Errorf("%w: depreciation bracket %d rate must be in [0, 1)", ErrInvalidCatalog, i)
		}
		if b.ToYear == 0 {
			if i != len(d.Brackets)-1 {
				return fmt.Errorf("%w: only the last depreciation bracket may be open ended", ErrInvalidCatalog)
			}
			break
		}
		if b.ToYear < b.FromYear {
			return fmt.Errorf("%w: depreciation bracket %d ends before it starts", ErrInvalidCatalog, i)
		}
		next = b.ToYear + 1
	}

	m := c.Mileage
	if m.AnnualAllowanceKm < 0 || m.RatePer1000Km < 0 {
		return fmt.Errorf("%w: mileage policy must not be negative", ErrInvalidCatalog)
	}
	if m.Floor <= 0 || m.Floor > 1 {
		return fmt.Errorf("%w: mileage floor must be in (0, 1]", ErrInvalidCatalog)
	}
	return nil
}

// decreasing checks that the multipliers of the keys present in table fall
// strictly in the given order.
func decreasing(name string, table map[string]float64, order []string) error {
	prevKey, prev := "", math.Inf(1)
	for _, key := range order {
		m, ok := table[key]
		if !ok {
			continue
		}
		if m >= prev {
			return fmt.Errorf("%w: %s[%s] must be below %s[%s]", ErrInvalidCatalog, name, key, name, prevKey)
		}
		prevKey, prev = key, m
	}
	return nil
}

// BasePrice returns the catalog price of a model in rupees.
func (c *Catalog) BasePrice(maker, model string) (int64, bool) {
	lakhs, ok := c.Makes[maker][model]
	if !ok {
		return 0, false
	}
	return int64(math.Round(lakhs * LakhRupees)), true
}

// MakerNames returns the makers in alphabetical order.
func (c *Catalog) MakerNames() []string {
	return sortedKeys(c.Makes)
}

// ModelsFor returns the models of a maker in alphabetical order.
func (c *Catalog) ModelsFor(maker string) []string {
	return sortedKeys(c.Makes[maker])
}

// StateNames returns the states in alphabetical order.
func (c *Catalog) StateNames() []string {
	return sortedKeys(c.Regions)
}

// CitiesFor returns the cities of a state in catalog order.
func (c *Catalog) CitiesFor(state string) []string {
	cities := c.Regions[state].Cities
	if cities == nil {
		return nil
	}
	return append([]string(nil), cities...)
}

// HasCity reports whether city belongs to state.
func (c *Catalog) HasCity(state, city string) bool {
	for _, known := range c.Regions[state].Cities {
		if known == city {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package query

import (
	"fmt"
	"strings"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Field is a listing column a clause constrains.
type Field string

const (
	FieldStatus       Field = "status"
	FieldMaker        Field = "maker"
	FieldModel        Field = "model"
	FieldFuelType     Field = "fuel_type"
	FieldTransmission Field = "transmission"
	FieldPrice        Field = "price"
	FieldState        Field = "state"
	FieldCity         Field = "city"
)

// Clause is one conjunct.
type Clause struct {
	Field Field
	Op    Op
	Value any
}

// Predicate is a conjunction of clauses. The first clause always restricts to
// approved listings.
type Predicate struct {
	clauses []Clause
}

// Build composes the predicate for c. Clauses are emitted in a fixed order so
// equal criteria always produce the same predicate.
func Build(c FilterCriteria) Predicate {
	p := Predicate{clauses: []Clause{{Field: FieldStatus, Op: OpEq, Value: string(dal.StatusApproved)}}}
	eq := func(f Field, v string) {
		if v != "" {
			p.clauses = append(p.clauses, Clause{Field: f, Op: OpEq, Value: v})
		}
	}

	eq(FieldMaker, c.Maker)
	eq(FieldModel, c.Model)
	eq(FieldFuelType, c.FuelType)
	eq(FieldTransmission, c.Transmission)
	if c.MinPrice > 0 {
		p.clauses = append(p.clauses, Clause{Field: FieldPrice, Op: OpGte, Value: c.MinPrice})
	}
	if c.MaxPrice > 0 {
		p.clauses = append(p.clauses, Clause{Field: FieldPrice, Op: OpLte, Value: c.MaxPrice})
	}
	eq(FieldState, c.State)
	eq(FieldCity, c.City)
	return p
}

// Clauses returns a copy of the conjuncts.
func (p Predicate) Clauses() []Clause {
	return append([]Clause(nil), p.clauses...)
}

// Where renders the predicate as a SQL boolean expression with ? placeholders.
// Columns are qualified with alias when it is not empty.
func (p Predicate) Where(alias string) (string, []any) {
	parts := make([]string, 0, len(p.clauses))
	args := make([]any, 0, len(p.clauses))
	for _, cl := range p.clauses {
		col := string(cl.Field)
		if alias != "" {
			col = alias + "." + col
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", col, cl.Op))
		args = append(args, cl.Value)
	}
	return strings.Join(parts, " AND "), args
}

// Matches evaluates the predicate against a loaded listing.
func (p Predicate) Matches(l dal.Listing) bool {
	for _, cl := range p.clauses {
		if !cl.matches(l) {
			return false
		}
	}
	return true
}

func (cl Clause) matches(l dal.Listing) bool {
	switch cl.Field {
	case FieldPrice:
		bound, _ := cl.Value.(int64)
		switch cl.Op {
		case OpGte:
			return l.Price >= bound
		case OpLte:
			return l.Price <= bound
		default:
			return l.Price == bound
		}
	case FieldStatus:
		return string(l.Status) == cl.Value
	case FieldMaker:
		return l.Maker == cl.Value
	case FieldModel:
		return l.Model == cl.Value
	case FieldFuelType:
		return l.FuelType == cl.Value
	case FieldTransmission:
		return l.Transmission == cl.Value
	case FieldState:
		return l.State == cl.Value
	case FieldCity:
		return l.City == cl.Value
	}
	return false
}

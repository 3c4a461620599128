package dal

// PriceStats defines price figures over a set of listings
type PriceStats struct {
	Count   int   `json:"count"`
	Lowest  int64 `json:"lowest,omitempty"`
	Median  int64 `json:"median,omitempty"`
	Highest int64 `json:"highest,omitempty"`
}

// ListingView defines a listing as shown to buyers. Contact is only set for
// verified sessions.
type ListingView struct {
	Listing
	Features []string       `json:"features,omitempty"`
	Contact  *SellerContact `json:"contact,omitempty"`
}

// ListingsResponse defines the search HTTP response struct
type ListingsResponse struct {
	Stats    PriceStats    `json:"stats"`
	Listings []ListingView `json:"listings"`
}

// Adjustment defines one applied valuation stage
type Adjustment struct {
	Stage  string  `json:"stage"`
	Key    string  `json:"key,omitempty"`
	Factor float64 `json:"factor"`
}

// EstimateResponse defines the estimate HTTP response struct
type EstimateResponse struct {
	BasePrice   int64        `json:"base_price"`
	Price       int64        `json:"price"`
	Adjustments []Adjustment `json:"adjustments"`
	Warnings    []string     `json:"warnings,omitempty"`
	Comparables []Listing    `json:"comparables,omitempty"`
}

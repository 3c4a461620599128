package dal

import (
	"strings"
	"time"
)

// ListingStatus defines the moderation state of a listing
type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
)

// InquiryStatus defines the follow-up state of a buyer inquiry
type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "new"
	InquiryContacted InquiryStatus = "contacted"
)

// DocumentType defines the kind of paperwork attached to a listing
type DocumentType string

const (
	DocumentRCBook    DocumentType = "rc_book"
	DocumentInsurance DocumentType = "insurance"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	return t == DocumentRCBook || t == DocumentInsurance
}

// Seller defines the person submitting a car
type Seller struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	State     string    `json:"state" db:"state"`
	City      string    `json:"city" db:"city"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SellerContact defines the seller fields a buyer sees once verified
type SellerContact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	State string `json:"state"`
	City  string `json:"city"`
}

// Image defines an uploaded car photo
type Image struct {
	ID        int64  `json:"id" db:"id"`
	ListingID int64  `json:"listing_id" db:"car_id"`
	Data      []byte `json:"data,omitempty" db:"image_data"`
}

// Document defines an uploaded RC book or insurance file
type Document struct {
	ID        int64        `json:"id" db:"id"`
	ListingID int64        `json:"listing_id" db:"car_id"`
	Type      DocumentType `json:"type" db:"document_type"`
	Data      []byte       `json:"-" db:"document_data"`
}

// Listing defines a seller's car
type Listing struct {
	ID            int64         `json:"id" db:"id"`
	SellerID      int64         `json:"seller_id" db:"seller_id"`
	Maker         string        `json:"maker" db:"maker"`
	Model         string        `json:"model" db:"model"`
	FuelType      string        `json:"fuel_type" db:"fuel_type"`
	Transmission  string        `json:"transmission" db:"transmission"`
	Variant       string        `json:"variant" db:"variant"`
	Year          int           `json:"year" db:"year"`
	KmDriven      int64         `json:"km_driven" db:"km_driven"`
	Mileage       float64       `json:"mileage" db:"mileage"`
	Ownership     string        `json:"ownership" db:"ownership"`
	Price         int64         `json:"price" db:"price"`
	State         string        `json:"state" db:"state"`
	City          string        `json:"city" db:"city"`
	ExtraFeatures string        `json:"extra_features" db:"extra_features"`
	Status        ListingStatus `json:"status" db:"status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`

	Seller    SellerContact  `json:"-" db:"-"`
	Images    []Image        `json:"images" db:"-"`
	Documents []DocumentType `json:"documents,omitempty" db:"-"`
}

// Features splits the comma-separated feature tags.
func (l Listing) Features() []string {
	var out []string
	for _, f := range strings.Split(l.ExtraFeatures, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// JoinFeatures builds the stored form of a feature list.
func JoinFeatures(features []string) string {
	kept := make([]string, 0, len(features))
	for _, f := range features {
		if f = strings.TrimSpace(f); f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, ",")
}

// Inquiry defines a buyer's message about a listing
type Inquiry struct {
	ID        int64         `json:"id" db:"id"`
	ListingID int64         `json:"listing_id" db:"car_id"`
	Name      string        `json:"name" db:"name"`
	Email     string        `json:"email" db:"email"`
	Phone     string        `json:"phone" db:"phone"`
	Message   string        `json:"message" db:"message"`
	Status    InquiryStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`

	Maker       string `json:"maker,omitempty" db:"maker"`
	Model       string `json:"model,omitempty" db:"model"`
	Price       int64  `json:"price,omitempty" db:"price"`
	SellerEmail string `json:"seller_email,omitempty" db:"seller_email"`
}

// Submission defines everything a seller sends in one go
type Submission struct {
	Seller    Seller
	Listing   Listing
	Images    [][]byte
	Documents map[DocumentType][]byte
}

// Summary defines the admin dashboard counters
type Summary struct {
	PendingListings int `json:"pending_listings" db:"pending_listings"`
	NewInquiries    int `json:"new_inquiries" db:"new_inquiries"`
}

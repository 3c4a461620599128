package store

import (
	"fmt"
	"strings"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
)

// MaxImages is the most photos one submission may carry.
const MaxImages = 8

func validateSubmission(sub dal.Submission) error {
	if strings.TrimSpace(sub.Seller.Email) == "" {
		return fmt.Errorf("%w: seller email is required", ErrInvalidInput)
	}
	l := sub.Listing
	if strings.TrimSpace(l.Maker) == "" || strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("%w: maker and model are required", ErrInvalidInput)
	}
	if l.Price < 0 || l.KmDriven < 0 || l.Mileage < 0 {
		return fmt.Errorf("%w: price, km driven and mileage must not be negative", ErrInvalidInput)
	}
	if len(sub.Images) == 0 {
		return fmt.Errorf("%w: at least one image is required", ErrInvalidInput)
	}
	if len(sub.Images) > MaxImages {
		return fmt.Errorf("%w: at most %d images are allowed", ErrInvalidInput, MaxImages)
	}
	for _, docType := range []dal.DocumentType{dal.DocumentRCBook, dal.DocumentInsurance} {
		if len(sub.Documents[docType]) == 0 {
			return fmt.Errorf("%w: %s document is required", ErrInvalidInput, docType)
		}
	}
	return nil
}

func validateInquiry(inq *dal.Inquiry) error {
	if inq == nil {
		return fmt.Errorf("%w: nil inquiry", ErrInvalidInput)
	}
	if strings.TrimSpace(inq.Name) == "" || strings.TrimSpace(inq.Email) == "" {
		return fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	return nil
}

// Package moderation defines the one-way state machines for listings and buyer
// inquiries.
package moderation

import (
	"errors"
	"fmt"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
)

// ErrInvalidTransition is returned when a target state cannot be reached from
// the current one.
var ErrInvalidTransition = errors.New("invalid status transition")

// NextListing validates moving a listing from current to target and returns the
// resulting status. Applying the current terminal status again is a no-op.
// Approved and rejected are final.
func NextListing(current, target dal.ListingStatus) (dal.ListingStatus, error) {
	if target != dal.StatusApproved && target != dal.StatusRejected {
		return current, fmt.Errorf("%w: cannot move listing to %q", ErrInvalidTransition, target)
	}
	switch current {
	case dal.StatusPending:
		return target, nil
	case target:
		return current, nil
	default:
		return current, fmt.Errorf("%w: listing is already %s", ErrInvalidTransition, current)
	}
}

// NextInquiry validates moving an inquiry to target. The only move is new to
// contacted; repeating it is a no-op.
func NextInquiry(current, target dal.InquiryStatus) (dal.InquiryStatus, error) {
	if target != dal.InquiryContacted {
		return current, fmt.Errorf("%w: cannot move inquiry to %q", ErrInvalidTransition, target)
	}
	switch current {
	case dal.InquiryNew, dal.InquiryContacted:
		return dal.InquiryContacted, nil
	default:
		return current, fmt.Errorf("%w: unknown inquiry status %q", ErrInvalidTransition, current)
	}
}

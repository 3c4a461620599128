package moderation

import (
	"testing"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/dal"
	"github.com/stretchr/testify/assert"
)

func TestNextListing(t *testing.T) {
	tests := []struct {
		current dal.ListingStatus
		target  dal.ListingStatus
		want    dal.ListingStatus
		wantErr bool
	}{
		{current: dal.StatusPending, target: dal.StatusApproved, want: dal.StatusApproved},
		{current: dal.StatusPending, target: dal.StatusRejected, want: dal.StatusRejected},
		{current: dal.StatusApproved, target: dal.StatusApproved, want: dal.StatusApproved},
		{current: dal.StatusRejected, target: dal.StatusRejected, want: dal.StatusRejected},
		{current: dal.StatusApproved, target: dal.StatusRejected, want: dal.StatusApproved, wantErr: true},
		{current: dal.StatusRejected, target: dal.StatusApproved, want: dal.StatusRejected, wantErr: true},
		{current: dal.StatusPending, target: dal.StatusPending, want: dal.StatusPending, wantErr: true},
		{current: dal.StatusApproved, target: dal.StatusPending, want: dal.StatusApproved, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(string(tc.current)+"->"+string(tc.target), func(t *testing.T) {
			got, err := NextListing(tc.current, tc.target)
			assert.Equal(t, tc.want, got)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextInquiry(t *testing.T) {
	got, err := NextInquiry(dal.InquiryNew, dal.InquiryContacted)
	assert.NoError(t, err)
	assert.Equal(t, dal.InquiryContacted, got)

	got, err = NextInquiry(dal.InquiryContacted, dal.InquiryContacted)
	assert.NoError(t, err)
	assert.Equal(t, dal.InquiryContacted, got)

	_, err = NextInquiry(dal.InquiryContacted, dal.InquiryNew)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

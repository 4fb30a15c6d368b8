package validator

import (
	"errors"
	"testing"

	"github.com/Maghvendra09/appointment-booking/pkg/logger"
	"github.com/Maghvendra09/appointment-booking/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateClaim(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name    string
		req     model.ClaimRequest
		wantErr bool
		message string
	}{
		{name: "valid", req: model.ClaimRequest{SlotID: "65f1c2a9e4b0a1b2c3d4e5f6"}},
		{name: "missing slot", req: model.ClaimRequest{}, wantErr: true, message: "SlotID is required"},
		{name: "malformed slot", req: model.ClaimRequest{SlotID: "nope"}, wantErr: true, message: "SlotID must be a valid identifier"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateClaim(&tt.req)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.message, verrs[0].Message)
		})
	}
}

func TestValidateID(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	assert.NoError(t, v.ValidateID("id", "65f1c2a9e4b0a1b2c3d4e5f6"))

	err := v.ValidateID("id", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")

	err = v.ValidateID("id", "zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid identifier")
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/mobcash/internal/apperr"
)

type sample struct {
	Phone   string  `json:"phone" validate:"required,numeric,min=8"`
	Network int64   `json:"network" validate:"gt=0"`
	Amount  float64 `json:"amount" validate:"omitempty,gte=1"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Phone: "12ab", Network: 0})
	require.Error(t, err)

	failure, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, failure.Kind)
	assert.Contains(t, failure.Fields, "phone")
	assert.Contains(t, failure.Fields, "network")
	assert.Equal(t, "network must be greater than 0", failure.FieldMessage("network"))
	assert.NotEmpty(t, failure.Message)
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(sample{Phone: "22997000000", Network: 1}))
}

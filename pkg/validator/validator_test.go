package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

type request struct {
	Phone string `json:"phone" validate:"required,min=10"`
	Code  string `json:"code" validate:"required,numeric"`
	Note  string `json:"-" validate:"max=3"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(request{Phone: "79991234567", Code: "12345"}))
}

func TestValidate_FieldNames(t *testing.T) {
	v := New()

	err := v.Validate(request{Code: "abc", Note: "long"})
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Errors, "phone")
	assert.Contains(t, ve.Errors, "code")
	assert.Contains(t, ve.Errors, "Note")
	assert.Contains(t, ve.Errors["phone"], "required")
}

func TestValidate_MapsToBadRequest(t *testing.T) {
	v := New()

	err := v.Validate(request{})

	var pe *pkgerrors.ValidationError
	assert.True(t, errors.As(err, &pe))
}

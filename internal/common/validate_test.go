package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type contactPayload struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Method string `json:"paymentMethod" validate:"required,oneof=stripe cod"`
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(contactPayload{Email: "not-an-email", Method: "cash"})
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_FAILED", appErr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)

	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Equal(t, map[string]string{"name": "required", "email": "email", "paymentMethod": "oneof"}, fields)

	require.NoError(t, ValidateStruct(contactPayload{Name: "Asha", Method: "cod"}))
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bciers/pkg/domain-errors"
)

type operatorPayload struct {
	LegalName   string `json:"legal_name" validate:"required,max=1000"`
	CRANumber   string `json:"cra_business_number" validate:"required,cra_bn"`
	BCCorpNum   string `json:"bc_corporate_registry_number" validate:"omitempty,bc_corp"`
	ContactMail string `json:"email" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		require.NoError(t, Struct(operatorPayload{
			LegalName: "Acme Cement Ltd.",
			CRANumber: "123456789",
			BCCorpNum: "BC1234567",
		}))
	})

	t.Run("missing field names json field", func(t *testing.T) {
		err := Struct(operatorPayload{CRANumber: "123456789"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "legal_name is required", err.Error())
	})

	t.Run("custom formats", func(t *testing.T) {
		err := Struct(operatorPayload{LegalName: "Acme", CRANumber: "12345"})
		require.Error(t, err)
		assert.Equal(t, "cra_business_number must be 9 digits", err.Error())

		err = Struct(operatorPayload{LegalName: "Acme", CRANumber: "123456789", BCCorpNum: "1234567"})
		require.Error(t, err)
		assert.Equal(t, "bc_corporate_registry_number must be 1-3 letters followed by 7 digits", err.Error())
	})

	t.Run("email format", func(t *testing.T) {
		err := Struct(operatorPayload{LegalName: "Acme", CRANumber: "123456789", ContactMail: "nope"})
		require.Error(t, err)
		assert.Equal(t, "email must be a valid email address", err.Error())
	})
}

// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type passwordFixture struct {
	Password string `validate:"strong_password"`
}

func TestStrongPasswordValidation(t *testing.T) {
	valid := []string{"Abcdef1!", "Str0ng&Pass", "Aa1!aa1!aa"}
	for _, p := range valid {
		assert.NoError(t, ValidateStruct(&passwordFixture{Password: p}), p)
	}

	invalid := []string{"short1!", "alllowercase1!", "ALLUPPERCASE1!", "NoNumbers!", "NoSpecials1"}
	for _, p := range invalid {
		assert.Error(t, ValidateStruct(&passwordFixture{Password: p}), p)
	}
}

type phoneFixture struct {
	Phone string `validate:"phone"`
}

func TestPhoneValidation(t *testing.T) {
	valid := []string{"", "+44 20 7946 0958", "0123456789", "(020) 794-6095"}
	for _, p := range valid {
		assert.NoError(t, ValidateStruct(&phoneFixture{Phone: p}), p)
	}

	invalid := []string{"12345", "phone-number", "+44;20"}
	for _, p := range invalid {
		assert.Error(t, ValidateStruct(&phoneFixture{Phone: p}), p)
	}
}

type emailPairFixture struct {
	Email        string `validate:"required,email"`
	ConfirmEmail string `validate:"required,eqfield=Email"`
}

func TestEqfieldValidation(t *testing.T) {
	assert.NoError(t, ValidateStruct(&emailPairFixture{
		Email:        "a@b.edu",
		ConfirmEmail: "a@b.edu",
	}))

	err := ValidateStruct(&emailPairFixture{
		Email:        "a@b.edu",
		ConfirmEmail: "c@d.edu",
	})
	assert.Error(t, err)

	errors := GetValidationErrors(err)
	assert.Len(t, errors, 1)
	assert.Equal(t, "confirmemail", errors[0].Field)
	assert.Equal(t, "eqfield", errors[0].Tag)
}

func TestGetValidationErrorsOnNil(t *testing.T) {
	assert.Empty(t, GetValidationErrors(nil))
}

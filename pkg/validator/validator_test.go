package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10,secret"`
	Name     string `json:"name" validate:"required,notblank"`
	Gender   string `json:"gender" validate:"required,gender"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := signupPayload{
		Email:    "ada@example.com",
		Password: "correct horse battery",
		Name:     "Ada",
		Gender:   "Female",
	}

	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructFailures(t *testing.T) {
	payload := signupPayload{
		Email:    "invalid",
		Password: "line\nbreak-password",
		Name:     "   ",
		Gender:   "robot",
	}

	err := ValidateStruct(payload)
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 4)

	require.True(t, vErrs.Has("email", "email"))
	require.True(t, vErrs.Has("password", "secret"))
	require.True(t, vErrs.Has("name", "notblank"))
	require.True(t, vErrs.Has("gender", "gender"))
	require.False(t, vErrs.Has("gender", "required"))

	for _, v := range vErrs {
		if v.Tag == "gender" {
			require.Equal(t, "male female others", v.Param)
		}
	}
	require.Contains(t, err.Error(), "email failed on email")
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("seller_role", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "seller"
	})
	require.NoError(t, err)

	type custom struct {
		Role string `validate:"seller_role"`
	}

	require.NoError(t, ValidateStruct(custom{Role: "seller"}))
	require.Error(t, ValidateStruct(custom{Role: "user"}))
}

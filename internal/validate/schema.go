package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request schemas. Handlers decode into these and call Validator.Struct.

type PhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

type SendCodeRequest = PhoneRequest

type VerifyCodeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	Code        string `json:"code" validate:"required,otp"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	Password    string `json:"password" validate:"required"`
}

type SetPasswordRequest struct {
	Password string `json:"password" validate:"required,strong_password"`
}

// Validator binds the rule functions of this package to struct tags.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := ValidatePhone(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		_, err := ValidateCode(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		_, err := ValidatePassword(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Struct validates s and returns the first failure as a *FieldError.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return fieldError(verrs[0])
}

func fieldError(fe validator.FieldError) *FieldError {
	value, _ := fe.Value().(string)
	var err error
	switch fe.Tag() {
	case "phone":
		_, err = ValidatePhone(value)
	case "otp":
		_, err = ValidateCode(value)
	case "strong_password":
		_, err = ValidatePassword(value)
	case "required":
		return &FieldError{Field: fe.Field(), Message: requiredMessage(fe.Field())}
	}
	var out *FieldError
	if errors.As(err, &out) {
		return out
	}
	return &FieldError{Field: fe.Field(), Message: "Campo inválido"}
}

func requiredMessage(field string) string {
	switch field {
	case "phoneNumber":
		return MsgPhoneRequired
	case "code":
		return MsgCodeRequired
	case "password":
		return MsgPasswordRequired
	default:
		return "Campo obrigatório"
	}
}

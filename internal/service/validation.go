package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type registerInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,minbytes=8,maxbytes=72"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyInput struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"omitempty,number,max=16"`
}

type resetInput struct {
	NewPassword string `json:"newPassword" validate:"required,minbytes=8,maxbytes=72"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// bcrypt limits input by bytes, so password bounds must too.
	_ = v.RegisterValidation("minbytes", byteBound(func(n, limit int) bool { return n >= limit }))
	_ = v.RegisterValidation("maxbytes", byteBound(func(n, limit int) bool { return n <= limit }))
	return v
}

func byteBound(ok func(n, limit int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return ok(len(fl.Field().String()), limit)
	}
}

func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = validationMessage(fe.Tag(), fe.Param())
	}
	first := fieldErrs[0]
	return &Error{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf("%s %s", first.Field(), fields[first.Field()]),
		Fields:  fields,
	}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", param)
	case "minbytes":
		return fmt.Sprintf("must be at least %s bytes", param)
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", param)
	case "number":
		return "must contain digits only"
	default:
		return "is invalid"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Package validation проверяет входные данные форм консоли (go-playground/validator)
// и переводит ошибки в ValidationError с сообщениями по полям.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"marketadmin/internal/apperr"
	"marketadmin/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Имена полей в ошибках - как в JSON.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := registerRules(v, customRules); err != nil {
		panic(fmt.Sprintf("validation: %v", err))
	}
	return v
}

var customRules = map[string]validator.Func{
	"phone":  validatePhone,
	"no_xss": validateNoXSS,
	"period": validatePeriod,
}

func registerRules(v *validator.Validate, rules map[string]validator.Func) error {
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("регистрация правила %q: %w", tag, err)
		}
	}
	return nil
}

func validatePhone(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := utils.NormalizePhone(value)
	return err == nil
}

var dangerousPatterns = []string{"<script", "javascript:", "onerror=", "onload=", "<iframe", "<object", "<embed"}

func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	for _, pattern := range dangerousPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

func validatePeriod(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, _, err := utils.ParsePeriod(value)
	return err == nil
}

// Struct проверяет структуру по тегам validate.
func Struct(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(op, err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return apperr.ValidationFields(op, fields)
}

// fieldPath - путь поля без имени корневой структуры: "registration.email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "required_if", "required_with":
		return "обязательное поле"
	case "email":
		return "неверный формат email"
	case "phone":
		return "неверный формат номера телефона"
	case "min":
		return fmt.Sprintf("минимум %s", fe.Param())
	case "max":
		return fmt.Sprintf("максимум %s", fe.Param())
	case "oneof":
		return "допустимые значения: " + fe.Param()
	case "hexcolor":
		return "цвет в формате #RRGGBB"
	case "period":
		return "период в формате ГГГГ-ММ"
	case "no_xss":
		return "недопустимое содержимое"
	}
	return "некорректное значение"
}

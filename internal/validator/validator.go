// Package validator はリクエストボディの入力検証を提供する。
// go-playground/validator をラップし、エラーメッセージにはJSONのフィールド名を使う。
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator は構造体タグ `validate` に従って入力を検証する。
type Validator struct {
	validate *validator.Validate
}

// New はValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate は構造体を検証する。
// 検証に失敗した場合は *ValidationError を返す。
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	return newValidationError(verrs)
}

// ValidationError はフィールドごとの検証エラーを保持する。
type ValidationError struct {
	Fields map[string]string
	tags   []string
}

// Error はフィールド名順に連結したメッセージを返す。
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), ", ")
}

// Messages はフィールド名順のメッセージ一覧を返す。
func (e *ValidationError) Messages() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return msgs
}

// HasTag は指定タグで失敗したフィールドがあるかを返す。
func (e *ValidationError) HasTag(tag string) bool {
	for _, t := range e.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Fields: make(map[string]string, len(errs))}

	for _, err := range errs {
		field := err.Field()
		ve.tags = append(ve.tags, err.Tag())

		switch err.Tag() {
		case "required":
			ve.Fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			ve.Fields[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			ve.Fields[field] = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			ve.Fields[field] = fmt.Sprintf("%s must be at most %s", field, err.Param())
		default:
			ve.Fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return ve
}

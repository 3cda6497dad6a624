//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RunMode selects how a release is handed to the processing pipeline.
type RunMode string

const (
	// RunAllTillToday processes the selected release together with every earlier unprocessed release.
	RunAllTillToday RunMode = "all_till_today"
	// RunOnlyThis processes the selected release alone.
	RunOnlyThis RunMode = "only_this"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("press_ts", func(fl validator.FieldLevel) bool {
		_, err := ParseTimestamp(fl.Field().String())
		return err == nil
	})
	return v
}

// CreateCompanyRequest represents the request to add or update a company.
type CreateCompanyRequest struct {
	Ticker string  `json:"ticker" validate:"required"`
	Name   string  `json:"name" validate:"required"`
	Sector *string `json:"sector"`
}

// Validate validates the CreateCompanyRequest using the validator.
func (r *CreateCompanyRequest) Validate() error {
	r.Ticker = strings.TrimSpace(r.Ticker)
	r.Name = strings.TrimSpace(r.Name)
	return validate.Struct(r)
}

// CreatePressReleaseRequest represents the request to crawl and store one press release.
type CreatePressReleaseRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Ticker  string `json:"ticker" validate:"required"`
	Title   string `json:"title" validate:"required"`
	PressTS string `json:"press_ts" validate:"required,press_ts"`
}

// Validate validates the CreatePressReleaseRequest using the validator.
func (r *CreatePressReleaseRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.Ticker = strings.TrimSpace(r.Ticker)
	r.Title = strings.TrimSpace(r.Title)
	return validate.Struct(r)
}

// RunRequest represents a request to submit a release for processing.
type RunRequest struct {
	Mode RunMode `json:"mode" validate:"required,oneof=all_till_today only_this"`
}

// Validate validates the RunRequest using the validator.
func (r *RunRequest) Validate() error {
	return validate.Struct(r)
}

// FieldError is one request validation failure, located by its path in the body.
type FieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

// FieldErrors converts validator errors into located messages. It returns nil
// when err is not a validation error.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Loc: []string{"body", fe.Field()},
			Msg: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "url":
		return "invalid url"
	case "oneof":
		return "value must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "press_ts":
		return "invalid datetime; use ISO 8601 or YYYY-MM-DD"
	default:
		return "failed on " + fe.Tag()
	}
}

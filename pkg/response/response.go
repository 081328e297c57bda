// Package response defines the JSON envelope returned by the HTTP front end on errors.
package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Response struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

var (
	EmptyRequestBodyResponse = Response{
		Status:  StatusError,
		Message: "empty request body",
	}

	InvalidRequestBodyResponse = Response{
		Status:  StatusError,
		Message: "invalid request body",
	}

	URLNotFoundResponse = Response{
		Status:  StatusError,
		Message: "url not found",
	}

	ServerErrorResponse = Response{
		Status:  StatusError,
		Message: "server error occurred",
	}
)

func SuccessResponse(msg string) Response {
	return Response{
		Status:  StatusSuccess,
		Message: msg,
	}
}

func ErrorResponse(msg string) Response {
	return Response{
		Status:  StatusError,
		Message: msg,
	}
}

func ValidationErrorResponse(err error) Response {
	return Response{
		Status:  StatusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "http_url":
		return "invalid http url"
	case "min":
		return "value is too short"
	case "max":
		return "value is too long"
	case "alphanum":
		return "only alphanumeric characters are allowed"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []ValidationError {
	var validationErrs []ValidationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, ValidationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

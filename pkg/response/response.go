// Package response defines the JSON envelope shared by all API handlers.
package response

import "github.com/go-playground/validator/v10"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "The request body could not be processed.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var URLExpiredResponse = Response{
	Status:  StatusError,
	Error:   "URL Expired",
	Message: "The short URL has expired.",
}

var RateLimitedResponse = Response{
	Status:  StatusError,
	Error:   "Too Many Requests",
	Message: "Rate limit exceeded. Try again later.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

// ValidationErrorResponse builds an error response carrying one detail
// entry per failed field.
func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "The request contains invalid values.",
	}

	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			resp.Details = append(resp.Details, map[string]string{
				"field":   e.Field(),
				"message": messageForTag(e.Tag()),
			})
		}
	}

	return resp
}

// ErrorResponse builds an error response with a caller-supplied message,
// for failures that already carry a user-facing explanation.
func ErrorResponse(errName, msg string) Response {
	return Response{
		Status:  StatusError,
		Error:   errName,
		Message: msg,
	}
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "min", "max":
		return "value is out of range"
	default:
		return "invalid value"
	}
}

package utils

import "time"

type SuccessResponse struct {
	Success bool  `json:"success"`
	Data    any   `json:"data"`
	Meta    *Meta `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Page      int       `json:"page,omitempty"`
	PageSize  int       `json:"page_size,omitempty"`
	Total     *int      `json:"total,omitempty"`
}

func CreateErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: APIError{
			Code:    code,
			Message: message,
		},
	}
}

// CreateFieldErrorResponse is CreateErrorResponse with the offending input field attached.
func CreateFieldErrorResponse(code, field, message string) ErrorResponse {
	resp := CreateErrorResponse(code, message)
	resp.Error.Field = field
	return resp
}

func CreateSuccessResponse(data any) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp: time.Now(),
		},
	}
}

func CreatePagedResponse(data any, page, pageSize, total int) SuccessResponse {
	resp := CreateSuccessResponse(data)
	resp.Meta.Page = page
	resp.Meta.PageSize = pageSize
	resp.Meta.Total = &total
	return resp
}

package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Paged is Success with pagination metadata for list endpoints
func Paged(statusCode int, data interface{}, meta interface{}) Response {
	res := Success(statusCode, data)
	res.Meta = meta
	return res
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithData is an error that still carries something the client can act on,
// such as the run to resume after a partial submission.
func ErrorWithData(statusCode int, err string, data interface{}) Response {
	res := Error(statusCode, err)
	res.Data = data
	return res
}

package httpx

import (
	"net/http"
)

// RequestIDHeader carries the request id on requests and responses.
// middleware.RequestID sets it on the response before any handler runs.
const RequestIDHeader = "X-Request-Id"

type ErrorEnvelope struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"requestId"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteError writes the error envelope every endpoint shares. The request id
// is read back from the response headers, so it works from middleware and
// from the OpenAPI validator, which never see the request context.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	WriteJSON(w, status, ErrorEnvelope{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

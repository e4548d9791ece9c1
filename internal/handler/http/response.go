package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorDetail in case of REST error, the response
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StandardResponse standard REST API response
type StandardResponse struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

func successResponse(data any) StandardResponse {
	return StandardResponse{Success: true, Data: data}
}

func errorResponse(code int, message string) StandardResponse {
	return StandardResponse{Success: false, Error: &ErrorDetail{Code: code, Message: message}}
}

// writeJSON encodes resp before touching the writer so an encoding failure can still become a 500.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, resp StandardResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Error("RESPONSE_ENCODE_FAILED", "err", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse(status, "Failed to encode response"))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug("RESPONSE_WRITE_FAILED", "err", err)
	}
}

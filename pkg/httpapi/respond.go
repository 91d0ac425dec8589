package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"
)

// Error codes carried in the "code" member of error responses.
const (
	CodeInvalidBody    = "INVALID_BODY"
	CodeMissingSchema  = "MISSING_SCHEMA"
	CodeSourceDisabled = "SOURCE_DISABLED"
	CodeUnprocessable  = "UNPROCESSABLE_SCHEMA"
	CodeInternal       = "INTERNAL_ERROR"
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// requestError is a failure the client caused.
type requestError struct {
	status int
	code   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(code string, format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, code: code, err: fmt.Errorf(format, args...)}
}

func unprocessable(err error) error {
	return &requestError{status: http.StatusUnprocessableEntity, code: CodeUnprocessable, err: err}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("httpapi: encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	body := errorBody{Error: err.Error(), Code: CodeInternal, RequestID: RequestID(r.Context())}
	status := http.StatusInternalServerError

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		status, body.Code = reqErr.status, reqErr.code
	} else {
		logger.Error("httpapi: request failed", "error", err, "request_id", body.RequestID)
		body.Error = "internal server error"
	}
	writeJSON(w, logger, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := decoder.Decode(v); err != nil {
		return badRequest(CodeInvalidBody, "invalid request body: %v", err)
	}
	return nil
}

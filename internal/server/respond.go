package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/memoroo/memoroo/internal/observe"
	"github.com/memoroo/memoroo/pkg/apperr"
)

// statusForKind is the single place where [apperr.Kind] values become HTTP
// status codes.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.KindModelUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindGenerationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON error envelope for all API failures.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps err onto a status code and writes the error envelope.
// Internal (KindUnknown) errors are logged and masked with a generic message
// so storage details never reach clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindUnknown {
		observe.Logger(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, statusForKind(kind), errorBody{Error: msg, Kind: kind.String()})
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to send.
		slog.Error("response encoding failed", "error", err)
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v at its
// zero value; malformed JSON is KindInvalid.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.New(apperr.KindInvalid, "server: invalid json body")
}

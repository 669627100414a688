package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"plancal/internal/bizdays"
	"plancal/internal/civil"
	"plancal/internal/holiday"
	appLog "plancal/internal/log"
	"plancal/internal/overlap"
	"plancal/internal/store"
	"plancal/internal/tz"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request-shape problems found by the handlers.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeErr maps err to a status and writes it. Server-side failures are
// logged; their details are not sent.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		appLog.Error("request failed", err, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, civil.ErrInvalidFormat),
		errors.Is(err, tz.ErrInvalidTimeZone),
		errors.Is(err, bizdays.ErrInvalidRange),
		errors.Is(err, bizdays.ErrInvalidCount),
		errors.Is(err, overlap.ErrConfiguration),
		errors.Is(err, holiday.ErrInvalidCountry),
		errors.Is(err, store.ErrInvalidKey),
		errors.Is(err, store.ErrInvalidValue),
		errors.Is(err, store.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bizdays.ErrScanLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, holiday.ErrUpstream), errors.Is(err, holiday.ErrPayload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON body: trailing data")
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, badRequest("body larger than %d bytes", maxBodyBytes)
	}
	return b, nil
}

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, badRequest("not an integer: %q", s)
	}
	return n, nil
}

// boolDefault dereferences an optional JSON boolean.
func boolDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func intDefault(n *int, def int) int {
	if n == nil {
		return def
	}
	return *n
}

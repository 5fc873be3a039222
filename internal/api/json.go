package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/toxidity-18/Marketing-Data-Engine/internal/errors"
)

// maxJSONBody bounds JSON request bodies
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeSuccess merges success=true into the payload fields
func writeSuccess(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError renders the failure shape, choosing the status from the error code
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), map[string]any{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func writeMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUnsupportedFormat, errors.CodeDecodeFailed, errors.CodeMalformedInput,
		errors.CodeMissingColumn, errors.CodeInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// readJSON decodes an optional JSON body; an empty body leaves dst untouched
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return errors.InvalidInput("invalid JSON body: " + err.Error())
	}
	return nil
}

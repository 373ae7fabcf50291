// Package routing holds the http handlers of the submission api.
package routing

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds a submission body, source code included.
const maxBodyBytes = 1_048576 * 2

func handleJSONResponse(w http.ResponseWriter, body any, code int) {
	response, err := json.Marshal(body)

	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func handleErrorResponse(w http.ResponseWriter, code int, messages ...string) {
	handleJSONResponse(w, ErrorResponse{Errors: messages, Code: code}, code)
}

// decodeBody reads a single json document with no unknown fields into target.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		handleDecodeError(w, err)
		return false
	}

	return true
}

func handleDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxError):
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		handleErrorResponse(w, http.StatusBadRequest, msg)

	case errors.Is(err, io.ErrUnexpectedEOF):
		handleErrorResponse(w, http.StatusBadRequest, "Request body contains badly-formed JSON")

	case errors.As(err, &unmarshalTypeError):
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		handleErrorResponse(w, http.StatusBadRequest, msg)

	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		handleErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Request body contains unknown field %s", fieldName))

	case errors.Is(err, io.EOF):
		handleErrorResponse(w, http.StatusBadRequest, "Request body must not be empty")

	case errors.As(err, &maxBytesError):
		handleErrorResponse(w, http.StatusRequestEntityTooLarge, "Request body must not be larger than 2MB")

	default:
		log.Error().Err(err).Msg("failed to decode request body")
		handleErrorResponse(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// retryAfterSeconds rounds up so a client waiting the advertised time never
// lands inside the old window.
func retryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))

	if seconds < 1 {
		seconds = 1
	}

	return strconv.FormatInt(seconds, 10)
}

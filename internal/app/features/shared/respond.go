// internal/app/features/shared/respond.go

// Package shared holds the JSON plumbing common to all feature handlers:
// encoding, request decoding, URL parameter parsing, and the mapping
// from admission errors to HTTP statuses.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatherhub/gatherhub/internal/app/admission"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Remaining *int64 `json:"remaining,omitempty"`
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// Decode reads a JSON request body into dst, bounding its size.
func Decode(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// IDParam parses the named chi URL parameter as an ObjectID.
func IDParam(r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	return id, err == nil
}

// ParseID parses a hex string as an ObjectID.
func ParseID(hex string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hex)
	return id, err == nil
}

// AdmissionError maps an admission-service error to its HTTP response:
// NotFound 404, InvalidState 409, AdmissionDenied 409 with the remaining
// slot count, Validation 422, Persistence 500. Anything else is an
// internal error, logged.
func AdmissionError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		invalid *admission.InvalidStateError
		denied  *admission.AdmissionDeniedError
		badReq  *admission.ValidationError
		persist *admission.PersistenceError
	)
	switch {
	case errors.Is(err, admission.ErrNotFound), errors.Is(err, mongo.ErrNoDocuments):
		Error(w, http.StatusNotFound, "not found")
	case errors.As(err, &invalid):
		Error(w, http.StatusConflict, invalid.Error())
	case errors.As(err, &denied):
		JSON(w, http.StatusConflict, errorBody{Error: denied.Error(), Remaining: &denied.Remaining})
	case errors.As(err, &badReq):
		Error(w, http.StatusUnprocessableEntity, badReq.Error())
	case errors.As(err, &persist):
		log.Error("admission commit modified no rows", zap.Error(err))
		Error(w, http.StatusInternalServerError, "persistence failure")
	default:
		log.Error("admission operation failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

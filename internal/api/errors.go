package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/collection"
	"github.com/theLastOfCats/cinemate-admin/internal/db"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeError translates collection and store errors into responses.
func writeError(w http.ResponseWriter, err error) {
	var fields collection.FieldErrors
	var apiErr *cinemate.APIError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "Validation failed", Fields: fields})
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		JSONError(w, "Invalid request body", http.StatusBadRequest)
	case errors.Is(err, collection.ErrNoDraft):
		JSONError(w, "No draft is open", http.StatusConflict)
	case errors.Is(err, collection.ErrStalePosition), errors.Is(err, collection.ErrDuplicateID), errors.Is(err, db.ErrExists):
		JSONError(w, "The collection changed, reload and try again", http.StatusConflict)
	case errors.Is(err, collection.ErrOutOfRange), errors.Is(err, db.ErrNotFound):
		JSONError(w, "Item not found", http.StatusNotFound)
	case errors.Is(err, collection.ErrUnknownField):
		JSONError(w, "Unknown sort field", http.StatusBadRequest)
	case errors.Is(err, collection.ErrClosed):
		JSONError(w, "Session closed", http.StatusGone)
	case errors.As(err, &apiErr):
		msg := "Backend request failed"
		if apiErr.Message != "" {
			msg += ": " + apiErr.Message
		}
		JSONError(w, msg, http.StatusBadGateway)
	default:
		log.Printf("API: unhandled error: %v", err)
		JSONError(w, "Backend request failed", http.StatusBadGateway)
	}
}

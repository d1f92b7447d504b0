package rest

import (
	"encoding/json"
	"net/http"

	"github.com/klokku/cycleledger/internal/errs"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusFor maps an error to the HTTP status code used for it.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.InvalidInput:
		return http.StatusBadRequest
	case errs.InsufficientFunds:
		return http.StatusUnprocessableEntity
	case errs.Conflict:
		return http.StatusConflict
	case errs.Unauthenticated:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Error: err.Error(), Kind: string(errs.KindOf(err))}
	if status == http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
		body = ErrorResponse{Error: "Internal server error", Details: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		log.Errorf("failed to encode error response: %v", encodeErr)
	}
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errs.New(errs.InvalidInput, message))
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

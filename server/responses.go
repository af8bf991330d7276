package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

const contentTypeJSON = "application/json; charset=utf-8"

var (
	ErrNilAuthService = errors.New("auth service is required")
	ErrNilIssuer      = errors.New("token issuer is required")
)

// Error kinds carried in the fixed {kind, message} error contract.
const (
	KindInvalidCredentials = "invalid_credentials"
	KindInvalidToken       = "invalid_token"
	KindUnauthorized       = "unauthorized"
	KindForbidden          = "forbidden"
	KindBadRequest         = "bad_request"
	KindServerError        = "server_error"
)

// User-facing messages. Kept verbatim across the collapsed failure cases so
// the response never reveals which condition triggered.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid refresh token"
	msgUnauthorized       = "Not authorized"
	msgForbidden          = "Access denied"
	msgServerError        = "Server error"
	msgLoggedOut          = "Logged out successfully"
)

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: message})
}

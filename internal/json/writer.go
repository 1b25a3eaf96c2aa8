package json

import (
	"encoding/json"
	"net/http"

	"github.com/yitumuglobal/site-api/internal/log"
)

// ErrorResponse is the JSON body for every failed API request.
// HowToFix is only filled for deployment errors an operator can act on.
type ErrorResponse struct {
	Error    string `json:"error"`
	HowToFix string `json:"how_to_fix,omitempty"`
}

// OKResponse is the body of an accepted request.
type OKResponse struct {
	OK bool `json:"ok"`
}

// WriteResponse writes a non-cacheable JSON response with the given status code
func WriteResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.LogError("Failed to encode JSON response: %v", err)
		return err
	}
	return nil
}

// WriteOK writes {"ok":true} with 200 OK status
func WriteOK(w http.ResponseWriter) {
	_ = WriteResponse(w, http.StatusOK, OKResponse{OK: true})
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	if err := WriteResponse(w, statusCode, ErrorResponse{Error: message}); err != nil {
		http.Error(w, message, statusCode)
	}
}

// WriteConfigError writes a 500 describing a deployment problem and its remedy
func WriteConfigError(w http.ResponseWriter, message, howToFix string) {
	response := ErrorResponse{
		Error:    message,
		HowToFix: howToFix,
	}
	if err := WriteResponse(w, http.StatusInternalServerError, response); err != nil {
		http.Error(w, message+": "+howToFix, http.StatusInternalServerError)
	}
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

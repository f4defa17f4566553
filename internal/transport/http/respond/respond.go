// Package respond writes the JSON bodies shared by handlers and middleware.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/exam-registration/internal/domain"
)

// Problem is the body of every rejected request. Kind is domain.Kind of the
// cause so clients branch on it rather than on the message.
type Problem struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes msg with the kind of cause.
func Error(w http.ResponseWriter, status int, cause error, msg string) {
	JSON(w, status, Problem{Error: msg, Kind: domain.Kind(cause)})
}

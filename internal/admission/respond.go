package admission

import (
	"encoding/json"
	"net/http"
)

// rejection is the fixed response shape for every admission refusal.
type rejection struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeRejection(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejection{Success: false, Message: message})
}

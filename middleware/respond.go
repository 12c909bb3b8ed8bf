package middleware

import (
	"encoding/json"
	"net/http"

	"p9e.in/crusher/utils"
)

// writeError mirrors the handlers' envelope for failures raised before a
// handler runs.
func writeError(w http.ResponseWriter, err *utils.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())
	if err.Kind == utils.KindInternal {
		json.NewEncoder(w).Encode(map[string]string{"message": "internal server error"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"error": err.Message})
}

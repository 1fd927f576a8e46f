package analytics

import (
	"encoding/json"
	"net/http"
)

type appOpened struct {
	ColdStart bool   `json:"cold_start"`
	From      string `json:"from"` // push, deeplink, icon
	Page      string `json:"page"`
}

// AppOpenedHandler records a client app open. A malformed body still
// counts as an open with empty props.
func AppOpenedHandler(sink Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body appOpened
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.From == "" {
			body.From = "unknown"
		}

		_ = Record(r, sink, EventAppOpened, map[string]any{
			"cold_start": body.ColdStart,
			"from":       body.From,
			"page":       body.Page,
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

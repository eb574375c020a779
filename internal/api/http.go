package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"jsondb/internal/engine"
	"jsondb/internal/model"
)

// NewHTTPHandler exposes operational endpoints next to the TCP protocol:
// /health for liveness and /stats for a peek at the store. Neither is
// part of the command surface.
func NewHTTPHandler(db *engine.DB, tcp *TCPListener) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		keys := db.Keys()
		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = model.FromString(k).String()
		}
		sessions := 0
		if tcp != nil {
			sessions = tcp.SessionCount()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"keys":%d,"sessions":%d,"key_names":[%s]}`,
			len(keys), sessions, strings.Join(quoted, ","))
	})

	return r
}

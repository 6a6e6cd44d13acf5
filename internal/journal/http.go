package journal

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

const maxChangesLimit = 500

// ChangesHandler serves recent journal entries as JSON. Optional query
// parameters: booking_id and limit.
func (j *Journal) ChangesHandler(logger *zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxChangesLimit)
		}

		entries, err := j.Recent(r.Context(), r.URL.Query().Get("booking_id"), limit)
		if err != nil {
			logger.Error().Err(err).Msg("query journal")
			http.Error(w, "journal unavailable", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []Entry{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			logger.Error().Err(err).Msg("encode journal entries")
		}
	})
}

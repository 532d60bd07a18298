package handlers

import "net/http"

// NewStationCountHandler returns GET /api/config/stations. Dashboards
// size their grids from this before the first snapshot arrives.
func NewStationCountHandler(count int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"station_count": count})
	}
}

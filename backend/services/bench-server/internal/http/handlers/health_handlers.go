package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewHealthHandler returns GET /healthz. It pings the database and,
// when configured, redis, so orchestration sees dependency failures.
func NewHealthHandler(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"status": "ok"}
		status := http.StatusOK

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				checks["database"] = err.Error()
				checks["status"] = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				checks["database"] = "ok"
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				checks["status"] = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				checks["redis"] = "ok"
			}
		}

		writeJSON(w, status, checks)
	}
}

package httpserver

import (
	"context"
	"net/http"
	"time"

	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency that must answer before the process reports ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

func healthLive(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Paybot-Env", env)
		writeSuccess(w, http.StatusOK, map[string]string{"status": "live"})
	}
}

func healthReady(env string, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Paybot-Env", env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeTransport, err, name+" unavailable")
				writeError(logg.WithField(r.Context(), "dependency", name), logg, w, wrapped)
				return
			}
		}
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

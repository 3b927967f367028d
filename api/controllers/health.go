package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/mljjcooking/storefront-backend/api/responses"
	"github.com/mljjcooking/storefront-backend/pkg/config"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
)

const readyCheckTimeout = 3 * time.Second

// Pinger is the health-check surface backing dependencies expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing dependency and reports the aggregate.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		var errs error
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			checks[name] = "ok"
		}

		if errs != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "readiness check failed").
					WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

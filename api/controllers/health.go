package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/agroworld/storefront/api/responses"
	"github.com/agroworld/storefront/pkg/config"
	"github.com/agroworld/storefront/pkg/db"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/logger"
)

const (
	envHeader         = "X-AgroWorld-Env"
	readyCheckTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency the API needs to serve traffic. Nil
// checks are skipped, which is how an unconfigured database is reported.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := map[string]string{}
		failed := map[string]any{}
		for _, name := range names {
			check := checks[name]
			if check == nil {
				status[name] = "skipped"
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			err := check.Ping(ctx)
			cancel()
			if err != nil {
				status[name] = "down"
				failed[name] = err.Error()
				continue
			}
			status[name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}

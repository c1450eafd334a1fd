// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/accounts/internal/platform/constants"
	"github.com/taibuivan/accounts/internal/platform/respond"
)

// readinessTimeout bounds every dependency check of a single /ready call.
const readinessTimeout = 2 * time.Second

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func(ctx context.Context) error

	// CheckCache pings the Redis client.
	CheckCache func(ctx context.Context) error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// readiness handles GET /ready (Readiness probe).
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	checkContext, cancel := context.WithTimeout(request.Context(), readinessTimeout)
	defer cancel()

	checks := []struct {
		name  string
		check func(context.Context) error
	}{
		{"postgres", handler.dependencies.CheckDatabase},
		{"redis", handler.dependencies.CheckCache},
	}

	results := make([]checkResult, 0, len(checks))
	isSystemReady := true

	for _, dependency := range checks {
		if dependency.check == nil {
			continue
		}

		result := checkResult{Name: dependency.name, IsOK: true}
		if err := dependency.check(checkContext); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", dependency.name), slog.Any("error", err))
		}
		results = append(results, result)
	}

	responseStatus := "ready"
	httpStatus := http.StatusOK

	if !isSystemReady {
		responseStatus = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		constants.FieldStatus: responseStatus,
		constants.FieldChecks: results,
	}})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/trading-network/internal/metrics"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Metrics exposes the process registry in the Prometheus text format.
func Metrics() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
}

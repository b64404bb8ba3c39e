package middleware

import (
	"strconv"
	"time"

	"premium_gallery/internal/metrics"

	"github.com/labstack/echo/v4"
)

// PrometheusMetrics считает запросы по шаблону маршрута, а не по фактическому URI,
// иначе каждый id элемента порождал бы отдельную серию.
func PrometheusMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/metrics" {
			return next(c)
		}

		start := time.Now()
		err := next(c)
		if err != nil {
			// ошибку echo превратит в ответ позже, статус нужен сейчас
			c.Error(err)
		}
		duration := time.Since(start).Seconds()

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request().Method,
			route,
			strconv.Itoa(c.Response().Status),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request().Method,
			route,
		).Observe(duration)

		return nil
	}
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/observability"
	"github.com/Rockthor1106/restaurant-management-api/internal/presentation/http/response"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

// Module exposes the HTTP server lifecycle to Fx.
var Module = fx.Module("http_server",
	fx.Provide(NewEcho),
	fx.Invoke(Run),
)

var errThrottled = errorbank.BadRequest("request was throttled", errorbank.WithCode("throttled"))

// NewEcho configures the Echo router with the shared middleware chain.
func NewEcho(cfg config.Config, obs *observability.Manager, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	if obs != nil && obs.TracingEnabled() {
		e.Use(otelecho.Middleware(cfg.Observability.ServiceName))
	}
	e.Use(requestLogger(logger))

	if cfg.HTTP.RateLimit.Enabled {
		e.Use(echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
			Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.HTTP.RateLimit.RPS),
				Burst:     cfg.HTTP.RateLimit.Burst,
				ExpiresIn: 3 * time.Minute,
			}),
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return response.New(c).WithStatus(http.StatusTooManyRequests).WithError(errThrottled).Build()
			},
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if obs != nil && obs.MetricsEnabled() && obs.MetricsHandler() != nil {
		e.GET(cfg.Observability.PrometheusPath, echo.WrapHandler(obs.MetricsHandler()))
	}

	return e
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("http request", append(fields, zap.Error(v.Error))...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Debug("http request", fields...)
			}
			return nil
		},
	})
}

// errorHandler renders errors escaping the handlers with the same envelope the
// handlers use.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		b := response.New(c)
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			message := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok {
				message = m
			}
			var appErr *errorbank.AppError
			switch he.Code {
			case http.StatusNotFound:
				appErr = errorbank.NotFound(message)
			case http.StatusForbidden, http.StatusUnauthorized:
				appErr = errorbank.Forbidden(message)
			case http.StatusMethodNotAllowed:
				appErr = errorbank.BadRequest(message, errorbank.WithCode("method_not_allowed"))
			default:
				if he.Code >= http.StatusInternalServerError {
					appErr = errorbank.Internal(message, errorbank.WithCause(err))
				} else {
					appErr = errorbank.BadRequest(message)
				}
			}
			b = b.WithStatus(he.Code).WithError(appErr)
		default:
			b = b.WithError(err)
		}

		if he == nil && errorbank.From(err).Kind() == errorbank.KindInternal {
			logger.Error("http request failed", zap.Error(err))
		}
		if buildErr := b.Build(); buildErr != nil {
			logger.Error("write error response", zap.Error(buildErr))
		}
	}
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}

package router

import (
	_ "github.com/dutyfree/reconcile/docs"
	"github.com/dutyfree/reconcile/internal/infrastructure/auth"
	"github.com/dutyfree/reconcile/internal/infrastructure/logger"
	"github.com/dutyfree/reconcile/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineOptions configures the middleware chain of the HTTP engine
type EngineOptions struct {
	Logger         *zap.Logger
	Verifier       *auth.TokenVerifier
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        middleware.TracingConfig
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Profiling      bool
	ReleaseMode    bool
	Swagger        middleware.SwaggerConfig
}

// NewEngine builds a gin engine with the shared middleware chain.
// Order matters: request IDs exist before the access log and tracing read
// them, and the owner is known only after JWT authentication.
func NewEngine(opts EngineOptions) (*gin.Engine, error) {
	if opts.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	tracing := opts.Tracing
	if opts.TracerProvider != nil {
		tracing.TracerProvider = opts.TracerProvider
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(opts.Logger),
		middleware.TracingWithConfig(tracing),
		logger.GinMiddleware(opts.Logger),
	)
	if opts.MeterProvider != nil {
		engine.Use(middleware.HTTPMetrics(opts.MeterProvider))
	}
	engine.Use(
		middleware.ProfilingLabels(opts.Profiling),
		middleware.CORSWithConfig(opts.CORS),
		middleware.Secure(),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}
	if opts.Verifier != nil {
		engine.Use(middleware.JWTAuthMiddleware(opts.Verifier))
	}
	engine.Use(
		middleware.OwnerSpanAttributes(),
		middleware.SpanErrorMarker(),
	)

	if opts.Swagger.Enabled {
		var authenticate gin.HandlerFunc
		if opts.Verifier != nil {
			authenticate = middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
				Verifier: opts.Verifier,
				Logger:   opts.Logger,
			})
		}
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(opts.Swagger, authenticate),
			ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return engine, nil
}

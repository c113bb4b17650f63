package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	jwttoken "mrzgate/internal/jwt_token"
	"mrzgate/internal/platform/config"
	"mrzgate/internal/platform/httpserver"
	"mrzgate/internal/scan/handler"
	"mrzgate/internal/scan/metrics"
	"mrzgate/pkg/platform/middleware/auth"
	"mrzgate/pkg/platform/middleware/metadata"
	"mrzgate/pkg/platform/middleware/request"
	"mrzgate/pkg/platform/middleware/requesttime"
)

// tokenAudience is the audience of API access tokens.
const tokenAudience = "mrzgate-api"

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		Long: `Serve exposes the scan pipeline over HTTP:

  GET  /health       liveness probe
  POST /extract-mrz  multipart "image" file, raw image body or {"base64": ...}
  GET  /metrics      Prometheus metrics

When JWT_SIGNING_KEY is set, /extract-mrz requires a bearer token issued
by "mrzgate token".`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides MRZGATE_ADDR and PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}

	m := metrics.New()
	svc, err := a.service(m)
	if err != nil {
		return err
	}

	router := newRouter(a, handler.New(svc, a.logger, m, a.cfg.Server.MaxUploadBytes))

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting mrzgate",
		"addr", ln.Addr().String(),
		"auth", a.cfg.Server.JWTSigningKey != "",
		"debug_images", a.cfg.Scan.DebugDir != "",
	)
	if err := httpserver.Run(ctx, httpserver.New(a.cfg.Server.Addr, router), ln, a.cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	a.logger.Info("mrzgate stopped")
	return nil
}

// newRouter mounts the middleware chain, metrics and scan endpoints.
func newRouter(a *app, h *handler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(a.logger))
	r.Use(request.Recoverer(a.logger))
	r.Use(corsHandler(a.cfg.Server).Handler)

	r.Handle("/metrics", promhttp.Handler())

	var protect []func(http.Handler) http.Handler
	if key := a.cfg.Server.JWTSigningKey; key != "" {
		jwtService := jwttoken.NewJWTService(key, a.cfg.Server.JWTIssuer, tokenAudience)
		protect = append(protect, auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), a.logger))
	}
	h.Register(r, protect...)
	return r
}

// corsHandler allows any origin unless origins are configured.
func corsHandler(cfg config.Server) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", request.HeaderRequestID},
		ExposedHeaders: []string{request.HeaderRequestID},
		MaxAge:         600,
	})
}

// Package web gin server
package web

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/knote/internal/web/note/blob"
	"github.com/Laisky/knote/internal/web/note/controller"
	"github.com/Laisky/knote/library/log"
)

const (
	uploadsCacheControl = "public, max-age=3600"
	shutdownTimeout     = 10 * time.Second
)

type serverOption struct {
	uploadDir      string
	allowedOrigins []string
}

// ServerOption is an option for NewServer
type ServerOption func(*serverOption) error

// WithLocalUploads serves files in dir under /uploads/
func WithLocalUploads(dir string) ServerOption {
	return func(o *serverOption) error {
		if dir == "" {
			return errors.New("upload dir should not be empty")
		}

		o.uploadDir = dir
		return nil
	}
}

// WithAllowedOrigins enables CORS for origins whose host is one of hosts or their subdomains
func WithAllowedOrigins(hosts ...string) ServerOption {
	return func(o *serverOption) error {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				o.allowedOrigins = append(o.allowedOrigins, h)
			}
		}

		return nil
	}
}

// NewServer builds the http handler of knote
func NewServer(notes *controller.Note, opts ...ServerOption) (*gin.Engine, error) {
	opt := new(serverOption)
	for _, f := range opts {
		if err := f(opt); err != nil {
			return nil, errors.Wrap(err, "apply option")
		}
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		newCORSMiddleware(opt.allowedOrigins),
	)

	if err := gmw.EnableMetric(server); err != nil {
		return nil, errors.Wrap(err, "enable metric")
	}

	health := newStatusHandler()
	server.GET("/health", health)
	server.HEAD("/health", health)
	server.OPTIONS("/health", health)

	notes.Register(server)

	if opt.uploadDir != "" {
		uploads := server.Group(strings.TrimSuffix(blob.LocalURLPrefix, "/"), cacheControl(uploadsCacheControl))
		uploads.Static("/", opt.uploadDir)
	}

	return server, nil
}

// Run serves handler on addr until ctx is done, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %q", addr)
	}

	return Serve(ctx, ln, handler)
}

// Serve serves handler on ln until ctx is done, then shuts down gracefully
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	logger := log.Logger.With(zap.String("addr", ln.Addr().String()))
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("listening on http")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve http")
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	return nil
}

func cacheControl(value string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Cache-Control", value)
		ctx.Next()
	}
}

// newStatusHandler answers liveness probes
func newStatusHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Allow", "GET, HEAD, OPTIONS")
		switch ctx.Request.Method {
		case http.MethodGet:
			ctx.String(http.StatusOK, "ok")
		default:
			ctx.Status(http.StatusOK)
		}
	}
}

func newCORSMiddleware(allowedHosts []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		origin := strings.TrimSpace(ctx.Request.Header.Get("Origin"))
		allowedOrigin := ""

		if origin != "" {
			parsedOriginURL, err := url.Parse(origin)
			if err == nil && originHostAllowed(strings.ToLower(parsedOriginURL.Hostname()), allowedHosts) {
				allowedOrigin = origin
			}
		}

		if allowedOrigin != "" {
			ctx.Header("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With")
			ctx.Header("Access-Control-Max-Age", "86400") // 24 hours
			ctx.Header("Vary", "Origin")

			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		} else if origin != "" && ctx.Request.Method == http.MethodOptions {
			// deny preflight from disallowed origins
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}

// originHostAllowed matches host against allowed hosts and their subdomains
func originHostAllowed(host string, allowedHosts []string) bool {
	if host == "" {
		return false
	}

	for _, allowed := range allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}

	return false
}

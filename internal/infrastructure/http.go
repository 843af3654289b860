package infrastructure

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krobus00/bitstamp-client/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	gatewayHTTPPortKey       = "market_data_gateway_http"
	defaultGatewayHTTPAddr   = ":8080"
	gatewayReadHeaderTimeout = 2 * time.Second
	gatewayReadTimeout       = 5 * time.Second
	gatewayIdleTimeout       = 60 * time.Second
	gatewayMaxHeaderBytes    = 64 << 10

	// above the exchange client default so upstream timeouts still get a response
	defaultGatewayWriteTimeout = 20 * time.Second

	requestIDHeader = "X-Request-Id"
)

// HTTPServer serves the market data gateway routes.
type HTTPServer struct {
	server *http.Server
}

type HTTPServerConfig struct {
	Addr         string
	WriteTimeout time.Duration
}

// GatewayHTTPConfig takes the listen address from HTTP_ADDR, falling back to
// port.market_data_gateway_http.
func GatewayHTTPConfig() HTTPServerConfig {
	cfg := HTTPServerConfig{
		Addr:         defaultGatewayHTTPAddr,
		WriteTimeout: defaultGatewayWriteTimeout,
	}

	if addr := strings.TrimSpace(os.Getenv("HTTP_ADDR")); addr != "" {
		cfg.Addr = addr
	} else if config.Env != nil {
		if port := strings.TrimSpace(config.Env.Port[gatewayHTTPPortKey]); port != "" {
			cfg.Addr = ":" + strings.TrimPrefix(port, ":")
		}
	}

	if config.Env != nil {
		if timeout := config.Env.Exchanges["bitstamp"].Timeout; timeout > 0 {
			cfg.WriteTimeout = timeout + 5*time.Second
		}
	}

	return cfg
}

func NewHTTPServerWithConfig(cfg HTTPServerConfig, handler http.Handler) *HTTPServer {
	if cfg.Addr == "" {
		cfg.Addr = defaultGatewayHTTPAddr
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultGatewayWriteTimeout
	}

	return &HTTPServer{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           withRequestID(withRecovery(withAccessLog(handler))),
			ReadTimeout:       gatewayReadTimeout,
			ReadHeaderTimeout: gatewayReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       gatewayIdleTimeout,
			MaxHeaderBytes:    gatewayMaxHeaderBytes,
		},
	}
}

func (h *HTTPServer) Addr() string {
	return h.server.Addr
}

func (h *HTTPServer) Start() error {
	logrus.WithField("addr", h.server.Addr).Info("http server starting")
	err := h.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (h *HTTPServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterHealthRoutes mounts /healthz and /readyz. A nil ready always
// reports ready.
func RegisterHealthRoutes(mux *http.ServeMux, ready func(ctx context.Context) error) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				logrus.WithError(err).Warn("readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}

		_, _ = w.Write([]byte("ready"))
	})
}

// withRequestID also sets the response headers every gateway reply carries.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		header := w.Header()
		header.Set(requestIDHeader, requestID)
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "DENY")
		header.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logrus.WithFields(logrus.Fields{
					"request_id": w.Header().Get(requestIDHeader),
					"path":       r.URL.Path,
					"panic":      recovered,
				}).Error("panic recovered in http handler")

				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		logrus.WithFields(logrus.Fields{
			"request_id":  w.Header().Get(requestIDHeader),
			"method":      r.Method,
			"path":        r.URL.Path,
			"client_ip":   clientIP(r),
			"status":      recorder.status,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Debug("gateway request")
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

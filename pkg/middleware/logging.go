package middleware

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/httpapi"
)

type LoggerOptions struct {
	RequestIDHeader string
	RealIPHeader    string
	// Headers are copied into the request log; values of other headers are not logged.
	Headers        []string
	LogRequestBody bool
	MaxBodyLength  int
	// QuietPaths are served without start and completion log lines.
	QuietPaths []string
	Repanic    bool
}

func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		Headers:         []string{"User-Agent", "Content-Type"},
		LogRequestBody:  true,
		MaxBodyLength:   512,
	}
}

func (o LoggerOptions) quiet(path string) bool {
	for _, p := range o.QuietPaths {
		if path == p {
			return true
		}
	}
	return false
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

var tracer = otel.Tracer("github.com/hmis-dev/hmis-sdk/pkg/middleware")

// TracedMiddleware opens a span around the rest of the chain.
func TracedMiddleware(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "middleware."+name,
				trace.WithAttributes(attribute.String("middleware.name", name)))
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestID(r *http.Request, header string) string {
	if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
		return id
	}
	return uuid.NewString()
}

func pickHeaders(h http.Header, names []string) logrus.Fields {
	out := logrus.Fields{}
	for _, n := range names {
		if v := h.Get(n); v != "" {
			out[strings.ToLower(n)] = v
		}
	}
	return out
}

// peekBody reads a JSON body for logging and puts it back for the handler.
func peekBody(r *http.Request, limit int) (string, error) {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return "", nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	if limit > 0 && len(data) > limit {
		return string(data[:limit]) + "...", nil
	}
	return string(data), nil
}

func levelFor(status int) logrus.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logrus.ErrorLevel
	case status >= http.StatusBadRequest:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

// WithLogger opens a span per request, stores a request-scoped logger in the
// context and turns handler panics into 500 responses.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := requestID(r, opts.RequestIDHeader)
			ip, _ := realIP(r, opts.RealIPHeader)
			quiet := opts.quiet(r.URL.Path)

			log := logger.WithFields(logrus.Fields{
				"request-id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
			})

			ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("client.address", ip),
				attribute.String("hmis.request_id", id),
			))
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				w.Header().Set("X-Trace-Id", sc.TraceID().String())
				log = log.WithField("trace-id", sc.TraceID().String())
			}
			w.Header().Set("X-Request-Id", id)

			if !quiet {
				log.WithFields(pickHeaders(r.Header, opts.Headers)).WithField("ip", ip).Info("request started")
			}
			if opts.LogRequestBody && !quiet {
				body, err := peekBody(r, opts.MaxBodyLength)
				if err != nil {
					log.WithError(err).Warn("failed to read request body")
					_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "failed to read request body", nil)
					return
				}
				if body != "" {
					log.WithField("request-body", body).Debug("request body")
				}
			}

			ctx = composables.WithLogger(ctx, log)
			ctx = composables.WithRequestStart(ctx, start)
			sw := &statusWriter{ResponseWriter: w}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				log.WithFields(logrus.Fields{
					"panic":    rec,
					"stack":    string(debug.Stack()),
					"duration": time.Since(start),
				}).Error("panic recovered in request handler")
				span.SetStatus(codes.Error, "panic")
				if sw.status == 0 {
					_ = httpapi.WriteError(sw, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR",
						"internal server error", map[string]string{"request_id": id})
				}
				if opts.Repanic {
					panic(rec)
				}
			}()

			next.ServeHTTP(sw, r.WithContext(ctx))

			status := sw.Status()
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			if quiet && status < http.StatusBadRequest {
				return
			}
			log.WithFields(logrus.Fields{
				"status":   status,
				"duration": time.Since(start),
			}).Log(levelFor(status), "request completed")
		})
	}
}

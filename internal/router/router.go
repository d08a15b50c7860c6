package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/auth"
	authrepo "github.com/eisengrid/service-api-go/internal/auth/repo"
	"github.com/eisengrid/service-api-go/internal/mail"
	"github.com/eisengrid/service-api-go/internal/research"
	researchrepo "github.com/eisengrid/service-api-go/internal/research/repo"
	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/internal/task"
	taskrepo "github.com/eisengrid/service-api-go/internal/task/repo"
	"github.com/eisengrid/service-api-go/internal/topic"
	topicrepo "github.com/eisengrid/service-api-go/internal/topic/repo"
	"github.com/eisengrid/service-api-go/internal/user"
	userrepo "github.com/eisengrid/service-api-go/internal/user/repo"
	"github.com/eisengrid/service-api-go/pkg/httperr"
	"github.com/eisengrid/service-api-go/pkg/utilities"
)

// serviceVersion is reported by the healthcheck.
const serviceVersion = "1.0.0"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request at debug level with a per-request id.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := utilities.NewKSUID()
			w.Header().Set("X-Request-Id", reqID)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets conservative security headers on every
// response.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes wires repositories, services and handlers and mounts them
// on a standard-library ServeMux. Every route runs behind the identity
// resolver; authorization itself happens in the services.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB) http.Handler {
	mux := http.NewServeMux()

	sessionCfg := session.ConfigFromEnv()
	tokens := session.NewTokenCodec(sessionCfg.Secret, sessionCfg.TokenTTL)
	cookies := session.NewCookieStore(sessionCfg.Secret, sessionCfg.SecureCookies)

	users := userrepo.NewUserRepo(db)
	topics := topicrepo.NewTopicRepo(db)
	tasks := taskrepo.NewTaskRepo(db)
	codes := authrepo.NewCodeRepo(db)
	researchData := researchrepo.NewResearchRepo(db)

	observer := research.NewRecorder(researchData, logger)
	sender := mail.NewSender(users, mail.LogTransport{Logger: logger}, mail.ConfigFromEnv(), logger)

	userSvc := user.NewService(users, sender, observer, logger)
	topicSvc := topic.NewService(topics, tasks, observer, logger)
	taskSvc := task.NewService(tasks, observer, logger)
	authSvc := auth.NewService(codes, users, sender, tokens, logger)

	userHandler := user.NewHandler(userSvc, logger)
	topicHandler := topic.NewHandler(topicSvc, logger)
	taskHandler := task.NewHandler(taskSvc, logger)
	authHandler := auth.NewHandler(authSvc, cookies, logger)
	mailHandler := mail.NewHandler(sender, users, logger)

	// health
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "{\"version\":%q,\"http\":\"ok\"}\n", serviceVersion)
	})

	// the classic probe route
	mux.HandleFunc("GET /api/teapot", func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, r, httperr.Teapot())
	})

	// auth
	mux.HandleFunc("POST /auth/request", authHandler.Request)
	mux.HandleFunc("POST /auth/verify", authHandler.Verify)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /auth/whoami", authHandler.Whoami)

	// users
	mux.HandleFunc("POST /api/users", userHandler.Create)
	mux.HandleFunc("GET /api/users", userHandler.List)
	mux.HandleFunc("GET /api/users/{id}", userHandler.Get)
	mux.HandleFunc("PUT /api/users/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", userHandler.Delete)
	mux.HandleFunc("GET /api/users/{id}/topics", topicHandler.ListForUser)
	mux.HandleFunc("GET /api/users/{id}/tasks", taskHandler.ListForUser)

	// topics
	mux.HandleFunc("POST /api/topics", topicHandler.Create)
	mux.HandleFunc("GET /api/topics", topicHandler.List)
	mux.HandleFunc("GET /api/topics/trash", topicHandler.Trash)
	mux.HandleFunc("GET /api/topics/{id}", topicHandler.Get)
	mux.HandleFunc("PUT /api/topics/{id}", topicHandler.Update)
	mux.HandleFunc("DELETE /api/topics/{id}", topicHandler.Delete)
	mux.HandleFunc("GET /api/topics/{id}/tasks", topicHandler.Tasks)

	// tasks
	mux.HandleFunc("POST /api/tasks", taskHandler.Create)
	mux.HandleFunc("GET /api/tasks", taskHandler.List)
	mux.HandleFunc("GET /api/tasks/trash", taskHandler.Trash)
	mux.HandleFunc("GET /api/tasks/{id}", taskHandler.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", taskHandler.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", taskHandler.Delete)

	// administration
	mux.HandleFunc("POST /api/admin/email", mailHandler.Broadcast)

	resolver := session.NewResolver(users, tokens, cookies, logger)
	handler := LoggingMiddleware(logger)(SecurityHeadersMiddleware()(resolver.Middleware(mux)))
	return handler
}

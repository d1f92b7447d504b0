package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/cycleledger/internal/config"
	"github.com/klokku/cycleledger/internal/errs"
	"github.com/klokku/cycleledger/internal/rest"
	"github.com/klokku/cycleledger/pkg/user"
	log "github.com/sirupsen/logrus"
)

const userIdHeader = "X-User-Id"

var errUnknownUser = errs.New(errs.Unauthenticated, "user not found")

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Use(requestLogger)
	r.Use(cors(cfg.Host))
	r.Use(userContext(deps.UserService))
}

// userContext resolves the trusted X-User-Id uid into the request context.
// Requests without the header pass through; handlers needing a user reject them.
func userContext(users user.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			uid := req.Header.Get(userIdHeader)
			if uid == "" {
				next.ServeHTTP(w, req)
				return
			}

			u, err := users.GetUserByUid(req.Context(), uid)
			if errors.Is(err, user.ErrUserNotFound) {
				log.Debugf("unknown user uid: %s", uid)
				rest.WriteError(w, errUnknownUser)
				return
			}
			if err != nil {
				log.Errorf("failed to resolve user %s: %v", uid, err)
				rest.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, req.WithContext(user.WithUser(req.Context(), u)))
		})
	}
}

func cors(origin string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, "+userIdHeader)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, req)

		log.WithFields(log.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"status":   recorder.status,
			"duration": time.Since(started).Milliseconds(),
		}).Debug("request served")
	})
}

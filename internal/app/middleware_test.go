package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/klokku/cycleledger/internal/config"
	"github.com/klokku/cycleledger/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*mux.Router, user.User) {
	users := user.NewUserService(user.NewStubUserRepo())
	created, err := users.CreateUser(context.Background(), user.User{Username: "alice", Uid: "uid-alice"})
	require.NoError(t, err)

	r := mux.NewRouter()
	SetupMiddleware(r, &Dependencies{UserService: users}, config.Application{Host: "http://localhost:5173"})
	r.HandleFunc("/whoami", func(w http.ResponseWriter, req *http.Request) {
		u, err := user.CurrentUser(req.Context())
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(u.Username))
	}).Methods("GET", "OPTIONS")
	return r, created
}

func TestSetupMiddleware(t *testing.T) {
	t.Run("should put resolved user into context", func(t *testing.T) {
		// given
		r, created := setupRouter(t)
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("X-User-Id", created.Uid)
		rr := httptest.NewRecorder()

		// when
		r.ServeHTTP(rr, req)

		// then
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "alice", rr.Body.String())
		assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should reject unknown uid", func(t *testing.T) {
		r, _ := setupRouter(t)
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("X-User-Id", "nobody")
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("should pass requests without header to handler", func(t *testing.T) {
		r, _ := setupRouter(t)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, httptest.NewRequest("GET", "/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("should answer preflight without calling handler", func(t *testing.T) {
		r, _ := setupRouter(t)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, httptest.NewRequest("OPTIONS", "/whoami", nil))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-User-Id")
	})
}

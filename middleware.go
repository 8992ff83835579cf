package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sanfish/fishdata"
	"sanfish/models"
	"sanfish/store"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ctxKey string

const userKey ctxKey = "user"

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: msg})
}

// authMiddleware resolves the Bearer token to an active user account.
func (a *App) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			unauthorized(w, "missing bearer token")
			return
		}
		uid, err := parseJWT(a.cfg.JWTSecret, strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		var u models.User
		err = a.store.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
			u, err = tx.FindUser(ctx, uid)
			return err
		})
		switch {
		case errors.Is(err, store.ErrNotFound):
			unauthorized(w, "user not found")
			return
		case err != nil:
			a.fail(w, r, err)
			return
		case !u.IsActive:
			unauthorized(w, "account is disabled")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) models.User {
	u, _ := r.Context().Value(userKey).(models.User)
	return u
}

// mustActor returns the authenticated principal; zero when unauthenticated.
func mustActor(r *http.Request) fishdata.Actor {
	u := currentUser(r)
	return fishdata.Actor{ID: u.ID, Role: u.Role}
}

// rateLimit throttles mutations per user. Redis errors let the request through.
func (a *App) rateLimit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		d, err := a.limiter.Allow(r.Context(), mustActor(r).ID.Hex())
		if err != nil {
			a.log.Warn("rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(a.limiter.Limit()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := int((d.RetryAfter + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Message: "too many requests, slow down"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLog emits one structured line per request.
func (a *App) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.log.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// withTimeout bounds every request by REQUEST_TIMEOUT. Service writes run on a
// context.WithoutCancel copy, so only reads are cut short.
func (a *App) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), a.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

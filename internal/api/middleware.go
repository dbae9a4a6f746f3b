package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"marketadmin/internal/apperr"
	"marketadmin/internal/constants"
	"marketadmin/internal/models"
	"marketadmin/internal/session"
)

// AuthMiddleware проверяет токен доступа (заголовок Authorization: Bearer или
// параметр access_token для EventSource) и кладет сессию администратора в контекст.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "api.Auth"
		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if token == "" {
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			h.writeError(w, r, apperr.Unauthorized(op, "отсутствует токен доступа"))
			return
		}

		claims, err := h.deps.Auth.ParseToken(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		admin, err := h.deps.Sessions.Load(r.Context(), claims.Subject)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithAdmin(r.Context(), admin)))
	})
}

// RoleMiddleware проверяет, соответствует ли роль администратора требуемой.
func (h *Handler) RoleMiddleware(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, ok := session.FromContext(r.Context())
			if !ok {
				h.writeError(w, r, apperr.Unauthorized("api.Role", "сессия не найдена"))
				return
			}
			if !admin.Role.AtLeast(required) {
				h.writeError(w, r, apperr.Forbidden("api.Role", constants.AccessDeniedMessage))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ---------- Rate limiter per-IP ----------
type ipLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// ipLimiters - ограничители по адресу клиента. Давно не использованные удаляются
// при обращении, не чаще раза в sweepEvery.
type ipLimiters struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	lastSweep time.Time
}

const (
	sweepEvery = 5 * time.Minute
	idleAfter  = 30 * time.Minute
)

func newIPLimiters(rps float64, burst int) *ipLimiters {
	return &ipLimiters{
		rps:       rate.Limit(rps),
		burst:     burst,
		limiters:  make(map[string]*ipLimiter),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if now.Sub(l.lastSweep) > sweepEvery {
		for key, il := range l.limiters {
			if now.Sub(il.last) > idleAfter {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}
	il, ok := l.limiters[ip]
	if !ok {
		il = &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = il
	}
	il.last = now
	return il.limiter
}

// RateLimitMiddleware ограничивает частоту запросов с одного адреса.
func (h *Handler) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiters.get(remoteIP(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "Слишком много запросов, попробуйте позже")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

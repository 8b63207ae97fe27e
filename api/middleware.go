package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFrom returns the authenticated principal stored by the auth
// middleware. The bool is false only on routes that skipped it.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(domain.Principal)
	return principal, ok
}

// RequireAuth verifies the bearer credential and binds the principal to
// the request context.
func RequireAuth(verifier contract.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			principal, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// principalLimiters hands out one token bucket per principal, so one
// chatty client cannot starve the rest of the fallback surface.
type principalLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newPrincipalLimiters(perMin int) *principalLimiters {
	return &principalLimiters{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMin,
	}
}

func (p *principalLimiters) get(principalID string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[principalID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(p.perMin)/60.0), p.perMin)
		p.limiters[principalID] = limiter
	}
	return limiter
}

// RateLimit throttles authenticated requests per principal. It must run
// after RequireAuth.
func RateLimit(perMin int) func(http.Handler) http.Handler {
	limiters := newPrincipalLimiters(perMin)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if ok && !limiters.get(principal.ID).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

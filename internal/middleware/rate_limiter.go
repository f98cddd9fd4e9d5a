package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
)

// janela counts requests of one client inside a fixed window.
type janela struct {
	count int
	fim   time.Time
}

// RateLimiter is a fixed-window limiter keyed by client IP. Expired
// entries are purged lazily, at most once per window.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	clientes map[string]*janela
	purga    time.Time
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		clientes: make(map[string]*janela),
		now:      time.Now,
	}
}

// Permitir registers one request for key and reports whether it fits in
// the current window, plus the window end.
func (r *RateLimiter) Permitir(key string) (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agora := r.now()
	if agora.After(r.purga) {
		for k, j := range r.clientes {
			if agora.After(j.fim) {
				delete(r.clientes, k)
			}
		}
		r.purga = agora.Add(r.window)
	}

	j, ok := r.clientes[key]
	if !ok || agora.After(j.fim) {
		j = &janela{fim: agora.Add(r.window)}
		r.clientes[key] = j
	}
	j.count++
	return j.count <= r.limit, j.fim
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, fim := r.Permitir(c.ClientIP())
		if !ok {
			segundos := int(time.Until(fim).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(segundos))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("muitas requisições, tente novamente em instantes"))
			return
		}
		c.Next()
	}
}

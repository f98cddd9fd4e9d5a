package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CircuitBreaker guards calls to an external dependency (the Redis audit
// queue). Closed lets calls through, Open fails fast, and Half-Open lets
// trial calls through until enough succeed to close again.

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker aberto")

type CircuitBreakerConfig struct {
	Nome             string
	FailureThreshold int           // consecutive failures that open the breaker
	SuccessThreshold int           // consecutive half-open successes that close it
	OpenTimeout      time.Duration // time spent open before probing
}

// DefaultCBConfig is tuned for the audit queue: a short open window so
// events fall back to the log only briefly after Redis recovers.
func DefaultCBConfig(nome string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Nome:             nome,
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      15 * time.Second,
	}
}

type CircuitBreaker struct {
	mu          sync.Mutex
	cfg         CircuitBreakerConfig
	state       CBState
	falhas      int
	sucessos    int
	abertoDesde time.Time
	now         func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig(cfg.Nome)
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed, now: time.Now}
}

// State reports the current state, moving Open to Half-Open once the
// open window has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() CBState {
	if cb.state == CBOpen && cb.now().Sub(cb.abertoDesde) >= cb.cfg.OpenTimeout {
		cb.transicionar(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.stateLocked() == CBOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.registrarFalha()
		return err
	}
	cb.registrarSucesso()
	return nil
}

func (cb *CircuitBreaker) registrarFalha() {
	cb.falhas++
	switch cb.state {
	case CBClosed:
		if cb.falhas >= cb.cfg.FailureThreshold {
			cb.abrir()
		}
	case CBHalfOpen:
		cb.abrir()
	}
}

func (cb *CircuitBreaker) registrarSucesso() {
	switch cb.state {
	case CBClosed:
		cb.falhas = 0
	case CBHalfOpen:
		cb.sucessos++
		if cb.sucessos >= cb.cfg.SuccessThreshold {
			cb.transicionar(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) abrir() {
	cb.abertoDesde = cb.now()
	cb.transicionar(CBOpen)
}

// transicionar must be called with mu held.
func (cb *CircuitBreaker) transicionar(novo CBState) {
	if cb.state == novo {
		return
	}
	log.Warn().
		Str("breaker", cb.cfg.Nome).
		Str("de", cb.state.String()).
		Str("para", novo.String()).
		Msg("circuit breaker mudou de estado")
	cb.state = novo
	cb.falhas = 0
	cb.sucessos = 0
}

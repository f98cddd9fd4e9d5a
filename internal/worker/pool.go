package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/infra"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAuditoria = "jobs:auditoria"
	JobAuditoria   = "auditoria"

	// MaxTentativas is how many times a job is processed before it goes to the DLQ.
	MaxTentativas = 3

	enqueueTimeout = 2 * time.Second
	brpopTimeout   = 5 * time.Second
)

// Wait after a failed BRPOP, doubling up to backoffMax while Redis stays down.
var (
	backoffInicial = 500 * time.Millisecond
	backoffMax     = 30 * time.Second
)

// Job is the envelope pushed to the Redis lists.
type Job struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Tentativa int             `json:"tentativa"`
}

// Dispatcher is the audit sink used by the services. Events are pushed to
// Redis through a circuit breaker; when the queue is unavailable they go
// to the fallback sink instead, so auditing never fails an operation.
type Dispatcher struct {
	rdb      *redis.Client
	cb       *infra.CircuitBreaker
	fallback service.Auditoria
}

func NewDispatcher(rdb *redis.Client, cb *infra.CircuitBreaker) *Dispatcher {
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig(QueueAuditoria))
	}
	return &Dispatcher{rdb: rdb, cb: cb, fallback: service.NewAuditoriaLog()}
}

var _ service.Auditoria = (*Dispatcher)(nil)

// Registrar enqueues one audit event. It runs after the commit, so the
// caller's cancellation must not drop the event.
func (d *Dispatcher) Registrar(ctx context.Context, ev model.EventoAuditoria) {
	if d.rdb == nil {
		d.fallback.Registrar(ctx, ev)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	err := d.cb.Execute(func() error {
		return enqueue(ctx, d.rdb, QueueAuditoria, JobAuditoria, ev, 0)
	})
	if err != nil {
		log.Warn().Err(err).
			Str("tabela", ev.Tabela).
			Str("registro_id", ev.RegistroID).
			Msg("auditoria: fila indisponível, registrando no log")
		d.fallback.Registrar(ctx, ev)
	}
}

func enqueue(ctx context.Context, rdb *redis.Client, queue, jobType string, payload any, tentativa int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data, Tentativa: tentativa})
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// ProcessadorAuditoria persists audit events taken from the queue.
type ProcessadorAuditoria struct {
	repo repository.AuditoriaRepository
	jobs *metrics.JobMetrics
}

func NewProcessadorAuditoria(repo repository.AuditoriaRepository, jobs *metrics.JobMetrics) *ProcessadorAuditoria {
	return &ProcessadorAuditoria{repo: repo, jobs: jobs}
}

// Processar handles one audit job payload.
func (p *ProcessadorAuditoria) Processar(ctx context.Context, payload json.RawMessage) (err error) {
	inicio := time.Now()
	defer func() { p.jobs.Observe(JobAuditoria, inicio, err) }()

	var ev model.EventoAuditoria
	if err = json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decodificar evento: %w", err)
	}
	reg, err := ParaRegistro(ev)
	if err != nil {
		return err
	}
	return p.repo.Create(ctx, &reg)
}

// ParaRegistro converts an event to its persisted row. Snapshots are kept
// as JSON text; a missing snapshot stays empty.
func ParaRegistro(ev model.EventoAuditoria) (model.RegistroAuditoria, error) {
	anterior, err := snapshot(ev.Anterior)
	if err != nil {
		return model.RegistroAuditoria{}, fmt.Errorf("snapshot anterior: %w", err)
	}
	novo, err := snapshot(ev.Novo)
	if err != nil {
		return model.RegistroAuditoria{}, fmt.Errorf("snapshot novo: %w", err)
	}
	return model.RegistroAuditoria{
		Acao:        ev.Acao,
		Tabela:      ev.Tabela,
		RegistroID:  ev.RegistroID,
		Anterior:    anterior,
		Novo:        novo,
		UsuarioID:   ev.UsuarioID,
		UsuarioNome: ev.UsuarioNome,
		OcorridoEm:  ev.OcorridoEm,
	}, nil
}

func snapshot(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StartWorkerPool launches numWorkers goroutines consuming the audit queue.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, proc *ProcessadorAuditoria) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, proc)
	}
	log.Info().Int("workers", numWorkers).Str("queue", QueueAuditoria).Msg("worker pool iniciado")
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, proc *ProcessadorAuditoria) {
	espera := backoffInicial
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker encerrando")
			return
		default:
		}

		result, err := rdb.BRPop(ctx, brpopTimeout, QueueAuditoria).Result()
		switch {
		case err == nil:
			espera = backoffInicial
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
			continue
		default:
			log.Warn().Err(err).Int("worker", id).Dur("espera", espera).Msg("falha no BRPOP, aguardando")
			select {
			case <-ctx.Done():
			case <-time.After(espera):
			}
			espera = min(espera*2, backoffMax)
			continue
		}
		if len(result) < 2 {
			continue
		}
		processJob(ctx, rdb, result[0], result[1], proc)
	}
}

// processJob re-queues a failed job until MaxTentativas, then moves it to
// the DLQ. Undecodable envelopes go straight to the DLQ.
func processJob(ctx context.Context, rdb *redis.Client, queue, raw string, proc *ProcessadorAuditoria) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		bruto, _ := json.Marshal(raw)
		SendToDLQ(ctx, rdb, queue, "desconhecido", bruto, err.Error(), 1)
		return
	}
	if job.Type != JobAuditoria {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "tipo de job desconhecido", job.Tentativa+1)
		return
	}

	err := proc.Processar(ctx, job.Payload)
	if err == nil {
		return
	}
	tentativa := job.Tentativa + 1
	if tentativa >= MaxTentativas {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), tentativa)
		return
	}
	log.Warn().Err(err).Int("tentativa", tentativa).Str("queue", queue).Msg("job falhou, reenfileirando")
	encoded, _ := json.Marshal(Job{Type: job.Type, Payload: job.Payload, Tentativa: tentativa})
	if pushErr := rdb.LPush(ctx, queue, encoded).Err(); pushErr != nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, pushErr.Error(), tentativa)
	}
}

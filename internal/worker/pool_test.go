package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/infra"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func novoRepoAuditoria(t *testing.T) repository.AuditoriaRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:auditoria_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.RegistroAuditoria{}))
	return repository.NewAuditoriaRepository(db)
}

func eventoLote() model.EventoAuditoria {
	return model.EventoAuditoria{
		Acao:        model.AcaoAtualizar,
		Tabela:      "production_wip",
		RegistroID:  uuid.NewString(),
		Anterior:    map[string]any{"etapa": "Secagem", "quantidade": 10},
		Novo:        map[string]any{"etapa": "Biscoito", "quantidade": 10},
		UsuarioID:   uuid.NewString(),
		UsuarioNome: "Marta",
		OcorridoEm:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestParaRegistro_GuardaSnapshotsComoJSON(t *testing.T) {
	ev := eventoLote()
	reg, err := ParaRegistro(ev)
	require.NoError(t, err)

	assert.Equal(t, ev.Acao, reg.Acao)
	assert.Equal(t, ev.RegistroID, reg.RegistroID)
	assert.Equal(t, ev.UsuarioNome, reg.UsuarioNome)
	assert.JSONEq(t, `{"etapa":"Secagem","quantidade":10}`, reg.Anterior)
	assert.JSONEq(t, `{"etapa":"Biscoito","quantidade":10}`, reg.Novo)

	ev.Anterior = nil
	reg, err = ParaRegistro(ev)
	require.NoError(t, err)
	assert.Empty(t, reg.Anterior)
}

func TestParaRegistro_SnapshotInvalido(t *testing.T) {
	ev := eventoLote()
	ev.Novo = make(chan int)
	_, err := ParaRegistro(ev)
	assert.Error(t, err)
}

func TestProcessadorAuditoria_PersisteEvento(t *testing.T) {
	repo := novoRepoAuditoria(t)
	reg := prometheus.NewRegistry()
	proc := NewProcessadorAuditoria(repo, metrics.NewJobMetrics(reg))

	ev := eventoLote()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, proc.Processar(context.Background(), payload))
	assert.Error(t, proc.Processar(context.Background(), json.RawMessage(`{"acao":`)))

	rows, err := repo.ListByRegistro(context.Background(), ev.Tabela, ev.RegistroID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Marta", rows[0].UsuarioNome)
	assert.True(t, ev.OcorridoEm.Equal(rows[0].OcorridoEm))
	assert.JSONEq(t, `{"etapa":"Biscoito","quantidade":10}`, rows[0].Novo)

	esperado := `
# HELP job_runs_total Background job executions by outcome.
# TYPE job_runs_total counter
job_runs_total{job="auditoria",resultado="erro"} 1
job_runs_total{job="auditoria",resultado="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(esperado), "job_runs_total"))
}

func TestDispatcher_SemRedisUsaLog(t *testing.T) {
	d := NewDispatcher(nil, nil)
	assert.NotPanics(t, func() { d.Registrar(context.Background(), eventoLote()) })
}

func TestDispatcher_FilaForaAbreOBreaker(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Nome: "teste", FailureThreshold: 2, OpenTimeout: time.Hour})
	d := NewDispatcher(rdb, cb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		d.Registrar(ctx, eventoLote())
	}
	assert.Equal(t, infra.CBOpen, cb.State())
}

func novoRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestProcessJob_ReenfileiraAteMandarParaDLQ(t *testing.T) {
	ctx := context.Background()
	rdb := novoRedis(t)
	proc := NewProcessadorAuditoria(novoRepoAuditoria(t), metrics.NewJobMetrics(nil))

	// a JSON string cannot decode into an audit event
	raw, err := json.Marshal(Job{Type: JobAuditoria, Payload: json.RawMessage(`"texto"`)})
	require.NoError(t, err)
	require.NoError(t, rdb.LPush(ctx, QueueAuditoria, raw).Err())

	for i := 1; i <= MaxTentativas; i++ {
		atual, err := rdb.RPop(ctx, QueueAuditoria).Result()
		require.NoError(t, err, "tentativa %d", i)
		processJob(ctx, rdb, QueueAuditoria, atual, proc)
	}

	pendentes, err := rdb.LLen(ctx, QueueAuditoria).Result()
	require.NoError(t, err)
	assert.Zero(t, pendentes)
	n, err := DLQLength(ctx, rdb, QueueAuditoria)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	bruto, err := rdb.LIndex(ctx, DLQPrefix+QueueAuditoria, 0).Result()
	require.NoError(t, err)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(bruto), &entry))
	assert.Equal(t, MaxTentativas, entry.Tentativas)
	assert.Equal(t, JobAuditoria, entry.JobType)
	assert.Equal(t, QueueAuditoria, entry.OriginalQueue)
}

func TestProcessJob_EnvelopeInvalidoVaiDiretoParaDLQ(t *testing.T) {
	ctx := context.Background()
	rdb := novoRedis(t)
	proc := NewProcessadorAuditoria(novoRepoAuditoria(t), metrics.NewJobMetrics(nil))

	processJob(ctx, rdb, QueueAuditoria, "nao e json", proc)
	outro, err := json.Marshal(Job{Type: "email", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	processJob(ctx, rdb, QueueAuditoria, string(outro), proc)

	n, err := DLQLength(ctx, rdb, QueueAuditoria)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestStartWorkerPool_ConsomeFila(t *testing.T) {
	rdb := novoRedis(t)
	repo := novoRepoAuditoria(t)
	proc := NewProcessadorAuditoria(repo, metrics.NewJobMetrics(nil))
	d := NewDispatcher(rdb, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartWorkerPool(ctx, rdb, 2, proc)

	ev := eventoLote()
	d.Registrar(context.Background(), ev)

	assert.Eventually(t, func() bool {
		rows, err := repo.ListByRegistro(context.Background(), ev.Tabela, ev.RegistroID)
		return err == nil && len(rows) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

type contadorComandos struct{ n atomic.Int32 }

func (c *contadorComandos) DialHook(next redis.DialHook) redis.DialHook { return next }

func (c *contadorComandos) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		c.n.Add(1)
		return next(ctx, cmd)
	}
}

func (c *contadorComandos) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRunWorker_RedisForaEsperaEntreTentativas(t *testing.T) {
	anterior := backoffInicial
	backoffInicial = 100 * time.Millisecond
	t.Cleanup(func() { backoffInicial = anterior })

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	cont := &contadorComandos{}
	rdb.AddHook(cont)

	// attempts at ~0, ~100ms and ~300ms; the next wait outlives the context
	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()
	fim := make(chan struct{})
	go func() {
		runWorker(ctx, rdb, 0, nil)
		close(fim)
	}()
	select {
	case <-fim:
	case <-time.After(3 * time.Second):
		t.Fatal("worker não encerrou com o contexto")
	}

	n := cont.n.Load()
	assert.GreaterOrEqual(t, n, int32(1))
	assert.LessOrEqual(t, n, int32(4))
}

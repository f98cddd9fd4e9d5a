package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/config"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/infra"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/router"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title Ateliê Produção API
// @version 1.0
// @description Fluxo de produção da oficina: lotes, etapas, estoque de materiais e perdas.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao carregar configuração")
	}
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao conectar no postgres")
	}
	if err := infra.MaybeAutoMigrate(ctx, db, cfg.MigrationsAutorun); err != nil {
		log.Fatal().Err(err).Msg("falha ao aplicar migrações")
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao conectar no redis")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	producaoMetrics := metrics.NewProducaoMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	// Audit goes through the Redis queue when configured, else to the log.
	var aud service.Auditoria = service.NewAuditoriaLog()
	if rdb != nil {
		aud = worker.NewDispatcher(rdb, infra.NewCircuitBreaker(infra.DefaultCBConfig(worker.QueueAuditoria)))
		proc := worker.NewProcessadorAuditoria(repository.NewAuditoriaRepository(db), jobMetrics)
		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, proc)
	} else {
		log.Warn().Msg("REDIS_URL vazio: auditoria apenas no log")
	}

	svc := router.NovosServicos(db, aud, producaoMetrics)

	agendador, err := worker.NewAgendador(cfg.AlertaEstoqueCron,
		worker.NewAlertaEstoqueJob(svc.Estoque, producaoMetrics, jobMetrics))
	if err != nil {
		log.Fatal().Err(err).Str("cron", cfg.AlertaEstoqueCron).Msg("ALERTA_ESTOQUE_CRON inválido")
	}
	agendador.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(cfg, db, rdb, svc, reg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("servidor de produção ouvindo")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("erro no servidor")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("encerrando servidor…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown forçado")
	}
	agendador.Stop(shutdownCtx)
	cancel()
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("servidor encerrado")
}

// setupLogger: pretty console in development, JSON otherwise.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "producao").Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

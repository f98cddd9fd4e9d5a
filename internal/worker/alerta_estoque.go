package worker

import (
	"context"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	JobAlertaEstoque = "alerta_estoque"

	// DefaultAlertaCron runs the scan at the top of every hour.
	DefaultAlertaCron = "0 * * * *"

	alertaTimeout = time.Minute
)

// FonteAlertas lists the materials at or below their minimum.
type FonteAlertas interface {
	Alertas(ctx context.Context) ([]dto.AlertaEstoqueResponse, error)
}

// AlertaEstoqueJob scans low-stock materials, logs each one and exports
// the count as a gauge.
type AlertaEstoqueJob struct {
	fonte    FonteAlertas
	producao *metrics.ProducaoMetrics
	jobs     *metrics.JobMetrics
}

func NewAlertaEstoqueJob(fonte FonteAlertas, producao *metrics.ProducaoMetrics, jobs *metrics.JobMetrics) *AlertaEstoqueJob {
	return &AlertaEstoqueJob{fonte: fonte, producao: producao, jobs: jobs}
}

func (j *AlertaEstoqueJob) Executar(ctx context.Context) (n int, err error) {
	inicio := time.Now()
	defer func() { j.jobs.Observe(JobAlertaEstoque, inicio, err) }()

	alertas, err := j.fonte.Alertas(ctx)
	if err != nil {
		log.Error().Err(err).Msg("alerta_estoque: falha na varredura")
		return 0, err
	}
	for _, a := range alertas {
		log.Warn().
			Str("material_id", a.MaterialID).
			Str("material", a.Nome).
			Str("estoque_atual", a.EstoqueAtual.String()).
			Str("estoque_minimo", a.EstoqueMinimo.String()).
			Str("unidade", a.Unidade).
			Msg("alerta_estoque: material abaixo do mínimo")
	}
	j.producao.MateriaisAbaixoDoMinimo(len(alertas))
	return len(alertas), nil
}

// Agendador runs the periodic jobs on a robfig cron.
type Agendador struct {
	cron *cron.Cron
}

// NewAgendador schedules the alert scan with a standard five-field expression.
func NewAgendador(expr string, job *AlertaEstoqueJob) (*Agendador, error) {
	if expr == "" {
		expr = DefaultAlertaCron
	}
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertaTimeout)
		defer cancel()
		_, _ = job.Executar(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &Agendador{cron: c}, nil
}

func (a *Agendador) Start() {
	log.Info().Int("jobs", len(a.cron.Entries())).Msg("agendador iniciado")
	a.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (a *Agendador) Stop(ctx context.Context) {
	select {
	case <-a.cron.Stop().Done():
	case <-ctx.Done():
	}
	log.Info().Msg("agendador parado")
}

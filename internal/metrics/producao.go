package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes.
const (
	ResultadoOK        = "ok"
	ResultadoRejeitado = "rejeitado"
	ResultadoErro      = "erro"
)

// ProducaoMetrics records workflow activity: operations by outcome and
// units flowing through the pipeline.
type ProducaoMetrics struct {
	operacoes *prometheus.CounterVec
	unidades  *prometheus.CounterVec
	abaixo    prometheus.Gauge
}

// NewProducaoMetrics registers the workflow metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewProducaoMetrics(reg prometheus.Registerer) *ProducaoMetrics {
	if reg == nil {
		return &ProducaoMetrics{}
	}
	operacoes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "producao_operacoes_total",
		Help: "Workflow operations by kind and outcome.",
	}, []string{"operacao", "resultado"})
	unidades := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "producao_unidades_total",
		Help: "Units started, finalized, lost or moved, by stage.",
	}, []string{"evento", "etapa"})
	abaixo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "estoque_materiais_abaixo_minimo",
		Help: "Physical materials at or below their alert threshold on the last scan.",
	})
	reg.MustRegister(operacoes, unidades, abaixo)
	return &ProducaoMetrics{operacoes: operacoes, unidades: unidades, abaixo: abaixo}
}

func (m *ProducaoMetrics) Operacao(operacao, resultado string) {
	if m == nil || m.operacoes == nil {
		return
	}
	m.operacoes.WithLabelValues(normalizeLabel(operacao), normalizeLabel(resultado)).Inc()
}

func (m *ProducaoMetrics) Unidades(evento, etapa string, qtd int) {
	if m == nil || m.unidades == nil || qtd <= 0 {
		return
	}
	m.unidades.WithLabelValues(normalizeLabel(evento), normalizeLabel(etapa)).Add(float64(qtd))
}

// MateriaisAbaixoDoMinimo sets the gauge from the latest alert scan.
func (m *ProducaoMetrics) MateriaisAbaixoDoMinimo(n int) {
	if m == nil || m.abaixo == nil {
		return
	}
	m.abaixo.Set(float64(n))
}

package model

// Etapa is one step of the fixed manufacturing pipeline.
// The pipeline only moves forward; there is no stored "finalized" stage:
// a finalized batch leaves production_wip.
type Etapa string

const (
	EtapaFilaDeEspera Etapa = "Fila de Espera"
	EtapaModelagem    Etapa = "Modelagem"
	EtapaSecagem      Etapa = "Secagem"
	EtapaBiscoito     Etapa = "Biscoito"
	EtapaEsmaltacao   Etapa = "Esmaltação"
	EtapaQueimaDeAlta Etapa = "Queima de Alta"
)

// Etapas lists the pipeline in order (Kanban column order).
var Etapas = []Etapa{
	EtapaFilaDeEspera,
	EtapaModelagem,
	EtapaSecagem,
	EtapaBiscoito,
	EtapaEsmaltacao,
	EtapaQueimaDeAlta,
}

var proximaEtapa = map[Etapa]Etapa{
	EtapaFilaDeEspera: EtapaModelagem,
	EtapaModelagem:    EtapaSecagem,
	EtapaSecagem:      EtapaBiscoito,
	EtapaBiscoito:     EtapaEsmaltacao,
	EtapaEsmaltacao:   EtapaQueimaDeAlta,
}

var ordemEtapa = func() map[Etapa]int {
	m := make(map[Etapa]int, len(Etapas))
	for i, e := range Etapas {
		m[e] = i
	}
	return m
}()

// Valida reports whether e is one of the six pipeline stages.
func (e Etapa) Valida() bool {
	_, ok := ordemEtapa[e]
	return ok
}

// Proxima returns the immediate successor. ok is false for the last stage
// and for unknown values.
func (e Etapa) Proxima() (Etapa, bool) {
	p, ok := proximaEtapa[e]
	return p, ok
}

// EhFinal reports whether e is the last stage (the only one finalize accepts).
func (e Etapa) EhFinal() bool { return e == EtapaQueimaDeAlta }

// Ordem is the zero-based position in the pipeline, -1 when unknown.
func (e Etapa) Ordem() int {
	if o, ok := ordemEtapa[e]; ok {
		return o
	}
	return -1
}

func (e Etapa) String() string { return string(e) }

package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoteProducao is an in-flight production batch (WIP).
// EncomendaID == nil means stock production.
type LoteProducao struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProdutoID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	VarianteID      *uuid.UUID `gorm:"type:uuid"`
	EncomendaID     *uuid.UUID `gorm:"type:uuid;index"`
	ItemEncomendaID *uuid.UUID `gorm:"type:uuid"`
	Etapa           Etapa      `gorm:"type:varchar(30);not null;index"`
	Quantidade      int        `gorm:"not null"`
	// MateriaisDeduzidos: clay/body already pulled at Modelagem.
	MateriaisDeduzidos bool `gorm:"not null;default:false"`
	// EsmalteDeduzido: glaze (recipe glaze + variant material) pulled at Esmaltação.
	EsmalteDeduzido bool `gorm:"not null;default:false"`
	Observacoes     string
	DataInicio      time.Time `gorm:"not null"`
	Prioridade      int       `gorm:"not null;default:0"`
	// LoteOrigemID is the batch created by the start-production call this
	// batch descends from (itself for a fresh batch).
	LoteOrigemID uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Historico []EventoEtapa `gorm:"foreignKey:LoteID"`
	Produto   *Produto      `gorm:"foreignKey:ProdutoID"`
	Encomenda *Encomenda    `gorm:"foreignKey:EncomendaID"`
}

func (LoteProducao) TableName() string { return "production_wip" }

func (l *LoteProducao) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.LoteOrigemID == uuid.Nil {
		l.LoteOrigemID = l.ID
	}
	return nil
}

// VinculadoAEncomenda reports whether the batch was started for an order.
func (l *LoteProducao) VinculadoAEncomenda() bool { return l.EncomendaID != nil }

// Stage event kinds.
const (
	EventoCriacao = "criacao"
	EventoEntrada = "entrada"
	EventoPerda   = "perda"
)

// EventoEtapa is one append-only entry of a batch's stage history.
type EventoEtapa struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	LoteID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Etapa      Etapa     `gorm:"type:varchar(30);not null"`
	Tipo       string    `gorm:"type:varchar(10);not null"`
	Quantidade int       `gorm:"not null;default:0"`
	Nota       string
	OcorridoEm time.Time `gorm:"not null;index"`
}

func (EventoEtapa) TableName() string { return "production_stage_events" }

func (e *EventoEtapa) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// HistoricoMapa renders the event log as the stage-name → timestamp view
// shown on the board. Re-entering a stage keeps the latest timestamp; every
// loss gets its own key ("Perda em <etapa> #n") so none is overwritten.
func (l *LoteProducao) HistoricoMapa() map[string]time.Time {
	eventos := make([]EventoEtapa, len(l.Historico))
	copy(eventos, l.Historico)
	sort.SliceStable(eventos, func(i, j int) bool {
		return eventos[i].OcorridoEm.Before(eventos[j].OcorridoEm)
	})

	mapa := make(map[string]time.Time, len(eventos))
	perdas := make(map[Etapa]int)
	for _, e := range eventos {
		switch e.Tipo {
		case EventoPerda:
			perdas[e.Etapa]++
			mapa[fmt.Sprintf("Perda em %s #%d", e.Etapa, perdas[e.Etapa])] = e.OcorridoEm
		case EventoCriacao:
			mapa["Criação"] = e.OcorridoEm
		default:
			mapa[string(e.Etapa)] = e.OcorridoEm
		}
	}
	return mapa
}

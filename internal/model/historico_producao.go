package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PerdaProducao records breakage at a stage.
// Records are immutable: never updated nor deleted.
type PerdaProducao struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProdutoID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	VarianteID      *uuid.UUID `gorm:"type:uuid"`
	LoteID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	LoteOrigemID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Etapa           Etapa      `gorm:"type:varchar(30);not null"`
	Quantidade      int        `gorm:"not null"`
	Motivo          string
	EncomendaID     *uuid.UUID `gorm:"type:uuid;index"`
	ItemEncomendaID *uuid.UUID `gorm:"type:uuid"`
	UsuarioID       uuid.UUID  `gorm:"type:uuid"`
	UsuarioNome     string
	CreatedAt       time.Time
}

func (PerdaProducao) TableName() string { return "production_losses" }

func (p *PerdaProducao) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HistoricoProducao is the completion record written on every finalize.
// Used for reporting only; immutable.
type HistoricoProducao struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProdutoID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	VarianteID   *uuid.UUID `gorm:"type:uuid"`
	Quantidade   int        `gorm:"not null"`
	EncomendaID  *uuid.UUID `gorm:"type:uuid;index"`
	LoteOrigemID uuid.UUID  `gorm:"type:uuid;not null;index"`
	UsuarioID    uuid.UUID  `gorm:"type:uuid"`
	UsuarioNome  string
	Nota         string
	CreatedAt    time.Time
}

func (HistoricoProducao) TableName() string { return "production_history" }

func (h *HistoricoProducao) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

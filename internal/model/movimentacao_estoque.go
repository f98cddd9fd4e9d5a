package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement types.
const (
	MovEntrada = "ENTRADA"
	MovSaida   = "SAIDA"
	MovAjuste  = "AJUSTE"
)

// MovimentacaoEstoque records every change of a material's stock.
// Records are immutable; Quantidade is signed (positive = entrada).
type MovimentacaoEstoque struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	MaterialID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	Tipo            string           `gorm:"type:varchar(10);not null"`
	Quantidade      decimal.Decimal  `gorm:"type:decimal(14,4);not null"`
	EstoqueAnterior decimal.Decimal  `gorm:"type:decimal(14,4);not null"`
	EstoqueNovo     decimal.Decimal  `gorm:"type:decimal(14,4);not null"`
	Custo           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Nota            string
	// LoteID links the movement to the production batch that caused it.
	LoteID      *uuid.UUID `gorm:"type:uuid;index"`
	UsuarioID   uuid.UUID  `gorm:"type:uuid"`
	UsuarioNome string
	CreatedAt   time.Time

	Material *Material `gorm:"foreignKey:MaterialID"`
}

func (MovimentacaoEstoque) TableName() string { return "inventory_transactions" }

func (m *MovimentacaoEstoque) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

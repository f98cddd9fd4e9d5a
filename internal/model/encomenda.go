package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses the engine reads or writes. Order CRUD lives elsewhere.
const (
	EncomendaPendente  = "Pendente"
	EncomendaProducao  = "Em Produção"
	EncomendaConcluida = "Concluída"
	EncomendaEntregue  = "Entregue"
	EncomendaCancelada = "Cancelada"
)

// Encomenda is a commissioned order.
type Encomenda struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Cliente     string    `gorm:"not null"`
	DataEntrega *time.Time
	Status      string `gorm:"type:varchar(20);not null;default:'Pendente'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Itens []ItemEncomenda `gorm:"foreignKey:EncomendaID"`
}

func (Encomenda) TableName() string { return "commission_orders" }

func (e *Encomenda) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ItemEncomenda is one order line. QuantidadeEstoque is the part served
// from existing stock; the remainder must be produced.
type ItemEncomenda struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EncomendaID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProdutoID           uuid.UUID  `gorm:"type:uuid;not null"`
	VarianteID          *uuid.UUID `gorm:"type:uuid"`
	Quantidade          int        `gorm:"not null"`
	QuantidadeEstoque   int        `gorm:"not null;default:0"`
	QuantidadeProduzida int        `gorm:"not null;default:0"`
}

func (ItemEncomenda) TableName() string { return "commission_items" }

func (i *ItemEncomenda) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Atendido reports whether the line's production target is met.
func (i *ItemEncomenda) Atendido() bool {
	return i.QuantidadeProduzida >= i.Quantidade-i.QuantidadeEstoque
}

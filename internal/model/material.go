package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Material categories. Labor and firing are cost allocations, never
// depletable stock.
const (
	TipoArgila    = "argila"
	TipoEsmalte   = "esmalte"
	TipoInsumo    = "insumo"
	TipoMaoDeObra = "mao_de_obra"
	TipoQueima    = "queima"
)

// Material is a raw input: clay, glaze, labor hours, kiln slots.
// EstoqueAtual is a running balance equal to the sum of its movements.
type Material struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Nome          string          `gorm:"index;not null"`
	Unidade       string          `gorm:"not null;default:'kg'"`
	Tipo          string          `gorm:"type:varchar(20);not null;default:'insumo'"`
	EstoqueAtual  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	EstoqueMinimo decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	// PrecoUnitario is the moving weighted-average unit cost.
	PrecoUnitario decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Material) TableName() string { return "materials" }

func (m *Material) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SemControleDeEstoque is true for labor and firing materials: they are
// exempt from availability checks and are never deducted.
func (m *Material) SemControleDeEstoque() bool {
	return m.Tipo == TipoMaoDeObra || m.Tipo == TipoQueima
}

// EhArgila marks the clay/body subset pulled at Modelagem.
func (m *Material) EhArgila() bool {
	if m.Tipo == TipoArgila {
		return true
	}
	nome := strings.ToLower(m.Nome)
	return strings.Contains(nome, "argila") || strings.Contains(nome, "barro")
}

// EhEsmalte marks the glaze subset that may be pulled at Esmaltação.
func (m *Material) EhEsmalte() bool {
	if m.Tipo == TipoEsmalte {
		return true
	}
	return strings.Contains(strings.ToLower(m.Nome), "esmalte")
}

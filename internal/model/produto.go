package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Produto is a sellable item. It is either simple (has a Receita) or a kit
// (has Componentes); never both. A kit's EstoqueAtual is not ground truth:
// its effective stock is derived from its components.
type Produto struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Nome      string          `gorm:"index;not null"`
	PrecoBase decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// Markup multiplies the cost-based price.
	Markup       decimal.Decimal `gorm:"type:decimal(6,3);not null;default:1"`
	EstoqueAtual int             `gorm:"not null;default:0"`
	Ativo        bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Receita     []ItemReceita   `gorm:"foreignKey:ProdutoID"`
	Componentes []ComponenteKit `gorm:"foreignKey:KitID"`
	Variantes   []Variante      `gorm:"foreignKey:ProdutoID"`
}

func (Produto) TableName() string { return "products" }

func (p *Produto) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EhKit reports whether the product is a composition of other products.
func (p *Produto) EhKit() bool { return len(p.Componentes) > 0 }

// ItemReceita is one bill-of-materials line: Quantidade of Material per unit.
type ItemReceita struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProdutoID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantidade decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Ordem      int             `gorm:"not null;default:0"`

	Material *Material `gorm:"foreignKey:MaterialID"`
}

func (ItemReceita) TableName() string { return "product_recipes" }

func (i *ItemReceita) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Variante is a decorated refinement of a simple product (e.g. a glaze
// color) with its own finished stock and an optional extra material.
type Variante struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProdutoID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Nome         string          `gorm:"not null"`
	EstoqueAtual int             `gorm:"not null;default:0"`
	AjustePreco  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// MaterialID/QuantidadeMaterial: charged per unit on top of the base recipe.
	MaterialID         *uuid.UUID      `gorm:"type:uuid;index"`
	QuantidadeMaterial decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Material *Material `gorm:"foreignKey:MaterialID"`
}

func (Variante) TableName() string { return "variants" }

func (v *Variante) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

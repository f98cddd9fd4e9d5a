package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComponenteKit defines the kit → child product relationship.
// One kit unit contains Quantidade child units.
type ComponenteKit struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	KitID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_kit_componente;not null"`
	ProdutoID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_kit_componente;not null"`
	Quantidade int       `gorm:"not null"`

	Produto *Produto `gorm:"foreignKey:ProdutoID"`
}

func (ComponenteKit) TableName() string { return "product_kits" }

func (c *ComponenteKit) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

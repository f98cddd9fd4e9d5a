package repository

import (
	"context"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaterialRepository defines the data access contract for raw materials.
type MaterialRepository interface {
	Create(ctx context.Context, m *model.Material) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Material, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Material, error)

	// ListAbaixoDoMinimo returns physical materials at or below their alert threshold.
	ListAbaixoDoMinimo(ctx context.Context) ([]model.Material, error)

	// AtualizarEstoqueTx writes the new balance only if the stored one is
	// still anterior; otherwise ErrConflito.
	AtualizarEstoqueTx(tx *gorm.DB, id uuid.UUID, anterior, novo decimal.Decimal) error
	AtualizarPrecoTx(tx *gorm.DB, id uuid.UUID, preco decimal.Decimal) error

	DB() *gorm.DB
}

type materialRepo struct{ db *gorm.DB }

func NewMaterialRepository(db *gorm.DB) MaterialRepository { return &materialRepo{db: db} }

func (r *materialRepo) DB() *gorm.DB { return r.db }

func (r *materialRepo) Create(ctx context.Context, m *model.Material) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *materialRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Material, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *materialRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Material, error) {
	var m model.Material
	if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) ListAbaixoDoMinimo(ctx context.Context) ([]model.Material, error) {
	var materiais []model.Material
	err := r.db.WithContext(ctx).
		Where("tipo NOT IN ?", []string{model.TipoMaoDeObra, model.TipoQueima}).
		Where("estoque_minimo > 0 AND estoque_atual <= estoque_minimo").
		Order("nome ASC").
		Find(&materiais).Error
	return materiais, err
}

func (r *materialRepo) AtualizarEstoqueTx(tx *gorm.DB, id uuid.UUID, anterior, novo decimal.Decimal) error {
	res := tx.Model(&model.Material{}).
		Where("id = ? AND estoque_atual = ?", id, anterior).
		Update("estoque_atual", novo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflito
	}
	return nil
}

func (r *materialRepo) AtualizarPrecoTx(tx *gorm.DB, id uuid.UUID, preco decimal.Decimal) error {
	return tx.Model(&model.Material{}).Where("id = ?", id).Update("preco_unitario", preco).Error
}

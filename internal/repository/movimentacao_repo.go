package repository

import (
	"context"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovimentacaoFilter defines filters for listing inventory movements.
type MovimentacaoFilter struct {
	MaterialID *uuid.UUID
	LoteIDs    []uuid.UUID
	Tipo       string
	Page       int
	Limit      int
}

// MovimentacaoRepository is append-only: movements are never updated nor deleted.
type MovimentacaoRepository interface {
	CreateTx(tx *gorm.DB, m *model.MovimentacaoEstoque) error
	List(ctx context.Context, filter MovimentacaoFilter) ([]model.MovimentacaoEstoque, int64, error)
	// SomaPorMaterial returns the signed sum of all movements of a material
	// and how many there are.
	SomaPorMaterial(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, int64, error)
}

type movimentacaoRepo struct{ db *gorm.DB }

func NewMovimentacaoRepository(db *gorm.DB) MovimentacaoRepository {
	return &movimentacaoRepo{db: db}
}

func (r *movimentacaoRepo) CreateTx(tx *gorm.DB, m *model.MovimentacaoEstoque) error {
	return tx.Create(m).Error
}

func (r *movimentacaoRepo) List(ctx context.Context, filter MovimentacaoFilter) ([]model.MovimentacaoEstoque, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimentacaoEstoque{})
	if filter.MaterialID != nil {
		q = q.Where("material_id = ?", *filter.MaterialID)
	}
	if len(filter.LoteIDs) > 0 {
		q = q.Where("lote_id IN ?", filter.LoteIDs)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movimentacoes []model.MovimentacaoEstoque
	err := q.Preload("Material").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&movimentacoes).Error
	return movimentacoes, total, err
}

func (r *movimentacaoRepo) SomaPorMaterial(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, int64, error) {
	// Summed in Go: SQL SUM over sqlite's REAL storage loses exactness.
	var quantidades []decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.MovimentacaoEstoque{}).
		Where("material_id = ?", materialID).
		Pluck("quantidade", &quantidades).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	soma := decimal.Zero
	for _, q := range quantidades {
		soma = soma.Add(q)
	}
	return soma, int64(len(quantidades)), nil
}

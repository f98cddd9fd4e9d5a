package repository

import (
	"context"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EncomendaRepository covers the slice of order data the production engine
// reads and writes. Order CRUD is owned elsewhere.
type EncomendaRepository interface {
	Create(ctx context.Context, e *model.Encomenda) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Encomenda, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Encomenda, error)
	IncrementarProduzidaTx(tx *gorm.DB, itemID uuid.UUID, qtd int) error
	AtualizarStatusTx(tx *gorm.DB, id uuid.UUID, status string) error
}

type encomendaRepo struct{ db *gorm.DB }

func NewEncomendaRepository(db *gorm.DB) EncomendaRepository {
	return &encomendaRepo{db: db}
}

func (r *encomendaRepo) Create(ctx context.Context, e *model.Encomenda) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *encomendaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Encomenda, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *encomendaRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Encomenda, error) {
	var e model.Encomenda
	if err := tx.Preload("Itens").Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *encomendaRepo) IncrementarProduzidaTx(tx *gorm.DB, itemID uuid.UUID, qtd int) error {
	res := tx.Model(&model.ItemEncomenda{}).Where("id = ?", itemID).
		Update("quantidade_produzida", gorm.Expr("quantidade_produzida + ?", qtd))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *encomendaRepo) AtualizarStatusTx(tx *gorm.DB, id uuid.UUID, status string) error {
	return tx.Model(&model.Encomenda{}).Where("id = ?", id).Update("status", status).Error
}

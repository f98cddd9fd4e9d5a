package repository

import (
	"context"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProdutoRepository is the product catalog: recipes, kit compositions,
// variants and finished-goods counters.
type ProdutoRepository interface {
	Create(ctx context.Context, p *model.Produto) error
	// FindByID loads the product with its recipe (in order, with materials),
	// kit components and variants.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Produto, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Produto, error)
	FindVariante(ctx context.Context, id uuid.UUID) (*model.Variante, error)
	FindVarianteTx(tx *gorm.DB, id uuid.UUID) (*model.Variante, error)

	// Finished-goods counters. Used inside transactions; callers must pass the tx instance.
	AjustarEstoqueTx(tx *gorm.DB, id uuid.UUID, delta int) error
	AjustarEstoqueVarianteTx(tx *gorm.DB, id uuid.UUID, delta int) error
	// BaixarEstoque*Tx decrement only when enough stock is present;
	// ErrConflito otherwise.
	BaixarEstoqueTx(tx *gorm.DB, id uuid.UUID, qtd int) error
	BaixarEstoqueVarianteTx(tx *gorm.DB, id uuid.UUID, qtd int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type produtoRepo struct{ db *gorm.DB }

func NewProdutoRepository(db *gorm.DB) ProdutoRepository { return &produtoRepo{db: db} }

func (r *produtoRepo) DB() *gorm.DB { return r.db }

func (r *produtoRepo) Create(ctx context.Context, p *model.Produto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func comCatalogo(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Receita", func(db *gorm.DB) *gorm.DB { return db.Order("ordem ASC") }).
		Preload("Receita.Material").
		Preload("Componentes").
		Preload("Componentes.Produto").
		Preload("Variantes", func(db *gorm.DB) *gorm.DB { return db.Order("nome ASC") }).
		Preload("Variantes.Material")
}

func (r *produtoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Produto, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *produtoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Produto, error) {
	var p model.Produto
	if err := comCatalogo(tx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *produtoRepo) FindVariante(ctx context.Context, id uuid.UUID) (*model.Variante, error) {
	return r.FindVarianteTx(r.db.WithContext(ctx), id)
}

func (r *produtoRepo) FindVarianteTx(tx *gorm.DB, id uuid.UUID) (*model.Variante, error) {
	var v model.Variante
	if err := tx.Preload("Material").Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *produtoRepo) AjustarEstoqueTx(tx *gorm.DB, id uuid.UUID, delta int) error {
	return tx.Model(&model.Produto{}).Where("id = ?", id).
		Update("estoque_atual", gorm.Expr("estoque_atual + ?", delta)).Error
}

func (r *produtoRepo) AjustarEstoqueVarianteTx(tx *gorm.DB, id uuid.UUID, delta int) error {
	return tx.Model(&model.Variante{}).Where("id = ?", id).
		Update("estoque_atual", gorm.Expr("estoque_atual + ?", delta)).Error
}

func (r *produtoRepo) BaixarEstoqueTx(tx *gorm.DB, id uuid.UUID, qtd int) error {
	res := tx.Model(&model.Produto{}).Where("id = ? AND estoque_atual >= ?", id, qtd).
		Update("estoque_atual", gorm.Expr("estoque_atual - ?", qtd))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflito
	}
	return nil
}

func (r *produtoRepo) BaixarEstoqueVarianteTx(tx *gorm.DB, id uuid.UUID, qtd int) error {
	res := tx.Model(&model.Variante{}).Where("id = ? AND estoque_atual >= ?", id, qtd).
		Update("estoque_atual", gorm.Expr("estoque_atual - ?", qtd))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflito
	}
	return nil
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type EntradaMaterialRequest struct {
	Quantidade decimal.Decimal `json:"quantidade" validate:"required,gt=0"`
	// Custo is the total purchase cost of this entry (not per unit).
	Custo decimal.Decimal `json:"custo" validate:"min=0"`
	Nota  string          `json:"nota"  validate:"max=300"`
}

type AjusteMaterialRequest struct {
	// Delta is signed: positive adds, negative removes.
	Delta decimal.Decimal `json:"delta" validate:"required"`
	Nota  string          `json:"nota"  validate:"required,min=3,max=300"`
}

type BaixaAcabadoRequest struct {
	ProdutoID  string  `json:"produto_id"  validate:"required,uuid"`
	VarianteID *string `json:"variante_id" validate:"omitempty,uuid"`
	Quantidade int     `json:"quantidade"  validate:"required,min=1"`
	Nota       string  `json:"nota"        validate:"max=300"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type MovimentacaoFilter struct {
	Tipo string `form:"tipo"`
	// LoteID is a lineage root: movements are booked against it.
	LoteID string `form:"lote_id"          validate:"omitempty,uuid"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimentacaoResponse struct {
	ID              string           `json:"id"`
	MaterialID      string           `json:"material_id"`
	Material        string           `json:"material,omitempty"`
	Tipo            string           `json:"tipo"`
	Quantidade      decimal.Decimal  `json:"quantidade"`
	EstoqueAnterior decimal.Decimal  `json:"estoque_anterior"`
	EstoqueNovo     decimal.Decimal  `json:"estoque_novo"`
	Custo           *decimal.Decimal `json:"custo"`
	Nota            string           `json:"nota"`
	LoteID          *string          `json:"lote_id"`
	UsuarioNome     string           `json:"usuario_nome"`
	CreatedAt       time.Time        `json:"created_at"`
}

type MovimentacaoListResponse struct {
	Data       []MovimentacaoResponse `json:"data"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

type MaterialResponse struct {
	ID            string          `json:"id"`
	Nome          string          `json:"nome"`
	Unidade       string          `json:"unidade"`
	Tipo          string          `json:"tipo"`
	EstoqueAtual  decimal.Decimal `json:"estoque_atual"`
	EstoqueMinimo decimal.Decimal `json:"estoque_minimo"`
	PrecoUnitario decimal.Decimal `json:"preco_unitario"`
}

// ConferenciaResponse compares the stored balance with the movement sum.
type ConferenciaResponse struct {
	MaterialID      string          `json:"material_id"`
	Nome            string          `json:"nome"`
	EstoqueAtual    decimal.Decimal `json:"estoque_atual"`
	SomaMovimentos  decimal.Decimal `json:"soma_movimentos"`
	Diferenca       decimal.Decimal `json:"diferenca"`
	Consistente     bool            `json:"consistente"`
	TotalMovimentos int64           `json:"total_movimentos"`
}

type AlertaEstoqueResponse struct {
	MaterialID    string          `json:"material_id"`
	Nome          string          `json:"nome"`
	Unidade       string          `json:"unidade"`
	EstoqueAtual  decimal.Decimal `json:"estoque_atual"`
	EstoqueMinimo decimal.Decimal `json:"estoque_minimo"`
	Deficit       decimal.Decimal `json:"deficit"`
}

type ComponenteEstoque struct {
	ProdutoID         string `json:"produto_id"`
	Nome              string `json:"nome"`
	QuantidadePorKit  int    `json:"quantidade_por_kit"`
	EstoqueComponente int    `json:"estoque_componente"`
	KitsPossiveis     int    `json:"kits_possiveis"`
}

type EstoqueVariante struct {
	VarianteID   string `json:"variante_id"`
	Nome         string `json:"nome"`
	EstoqueAtual int    `json:"estoque_atual"`
}

// EstoqueProdutoResponse: for kits EstoqueEfetivo is derived from
// Componentes and never read from the stored counter.
type EstoqueProdutoResponse struct {
	ProdutoID      string              `json:"produto_id"`
	Nome           string              `json:"nome"`
	Kit            bool                `json:"kit"`
	EstoqueEfetivo int                 `json:"estoque_efetivo"`
	Componentes    []ComponenteEstoque `json:"componentes,omitempty"`
	Variantes      []EstoqueVariante   `json:"variantes,omitempty"`
}

type BaixaAcabadoResponse struct {
	ProdutoID       string  `json:"produto_id"`
	VarianteID      *string `json:"variante_id"`
	Quantidade      int     `json:"quantidade"`
	EstoqueRestante int     `json:"estoque_restante"`
}

type ResolucaoResponse struct {
	ProdutoID  string                `json:"produto_id"`
	Quantidade decimal.Decimal       `json:"quantidade"`
	Materiais  []NecessidadeMaterial `json:"materiais"`
	Avisos     []Aviso               `json:"avisos,omitempty"`
}

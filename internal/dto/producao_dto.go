package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type IniciarProducaoRequest struct {
	ProdutoID   string     `json:"produto_id"   validate:"required,uuid"`
	Quantidade  int        `json:"quantidade"   validate:"required,min=1"`
	DataInicio  *time.Time `json:"data_inicio"`
	Observacoes string     `json:"observacoes"  validate:"max=500"`
	VarianteID  *string    `json:"variante_id"  validate:"omitempty,uuid"`
	Prioridade  int        `json:"prioridade"   validate:"min=0,max=100"`
	// EncomendaID and ItemEncomendaID come together or not at all.
	EncomendaID     *string `json:"encomenda_id"      validate:"omitempty,uuid"`
	ItemEncomendaID *string `json:"item_encomenda_id" validate:"omitempty,uuid"`
}

type AvancarLoteRequest struct {
	EtapaOrigem  string `json:"etapa_origem"  validate:"required"`
	EtapaDestino string `json:"etapa_destino" validate:"required"`
	Quantidade   int    `json:"quantidade"    validate:"required,min=1"`
	// QuantidadeTotal is the batch quantity the caller saw; a mismatch means
	// someone else touched the batch in between.
	QuantidadeTotal int     `json:"quantidade_total" validate:"required,min=1"`
	VarianteID      *string `json:"variante_id"      validate:"omitempty,uuid"`
	DeduzirEsmalte  bool    `json:"deduzir_esmalte"`
}

type FinalizarLoteRequest struct {
	Quantidade         int    `json:"quantidade"          validate:"required,min=1"`
	IncrementarEstoque bool   `json:"incrementar_estoque"`
	Observacoes        string `json:"observacoes"         validate:"max=500"`
}

type RegistrarPerdaRequest struct {
	// Etapa defaults to the batch's current stage when empty.
	Etapa      string `json:"etapa"`
	Quantidade int    `json:"quantidade" validate:"required,min=1"`
	Motivo     string `json:"motivo"     validate:"max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// Aviso is a non-fatal warning attached to a successful operation.
type Aviso struct {
	Codigo   string `json:"codigo"`
	Mensagem string `json:"mensagem"`
}

const AvisoSemReceita = "SEM_RECEITA"

type EventoEtapaResponse struct {
	Etapa      string    `json:"etapa"`
	Tipo       string    `json:"tipo"`
	Quantidade int       `json:"quantidade,omitempty"`
	Nota       string    `json:"nota,omitempty"`
	OcorridoEm time.Time `json:"ocorrido_em"`
}

type LoteResponse struct {
	ID                 string                `json:"id"`
	ProdutoID          string                `json:"produto_id"`
	Produto            string                `json:"produto,omitempty"`
	VarianteID         *string               `json:"variante_id"`
	EncomendaID        *string               `json:"encomenda_id"`
	ItemEncomendaID    *string               `json:"item_encomenda_id"`
	Etapa              string                `json:"etapa"`
	Quantidade         int                   `json:"quantidade"`
	MateriaisDeduzidos bool                  `json:"materiais_deduzidos"`
	EsmalteDeduzido    bool                  `json:"esmalte_deduzido"`
	Observacoes        string                `json:"observacoes"`
	DataInicio         time.Time             `json:"data_inicio"`
	Prioridade         int                   `json:"prioridade"`
	LoteOrigemID       string                `json:"lote_origem_id"`
	Historico          map[string]time.Time  `json:"historico"`
	Eventos            []EventoEtapaResponse `json:"eventos"`
}

type ColunaQuadro struct {
	Etapa string         `json:"etapa"`
	Lotes []LoteResponse `json:"lotes"`
}

type QuadroResponse struct {
	Colunas []ColunaQuadro `json:"colunas"`
}

// LinhagemResponse accounts for every unit of one start-production call:
// Total = EmProducao + Finalizadas + Perdidas.
type LinhagemResponse struct {
	LoteOrigemID string         `json:"lote_origem_id"`
	Lotes        []LoteResponse `json:"lotes"`
	EmProducao   int            `json:"em_producao"`
	Finalizadas  int            `json:"finalizadas"`
	Perdidas     int            `json:"perdidas"`
	Total        int            `json:"total"`
}

type IniciarProducaoResponse struct {
	Lote   LoteResponse `json:"lote"`
	Avisos []Aviso      `json:"avisos,omitempty"`
}

// AvancoResponse returns the moved batch and, on a partial move, the
// remainder left at the origin stage.
type AvancoResponse struct {
	Lote     LoteResponse           `json:"lote"`
	Restante *LoteResponse          `json:"restante,omitempty"`
	Deducoes []MovimentacaoResponse `json:"deducoes"`
	Avisos   []Aviso                `json:"avisos,omitempty"`
}

type FinalizacaoResponse struct {
	HistoricoID         string                 `json:"historico_id"`
	Quantidade          int                    `json:"quantidade"`
	Restante            *LoteResponse          `json:"restante,omitempty"`
	Deducoes            []MovimentacaoResponse `json:"deducoes"`
	EncomendaConcluida  bool                   `json:"encomenda_concluida"`
	EstoqueIncrementado bool                   `json:"estoque_incrementado"`
	Avisos              []Aviso                `json:"avisos,omitempty"`
}

type PerdaResponse struct {
	PerdaID       string        `json:"perda_id"`
	Reposto       bool          `json:"reposto"`
	Lote          *LoteResponse `json:"lote,omitempty"`
	LoteReposicao *LoteResponse `json:"lote_reposicao,omitempty"`
}

// NecessidadeMaterial is one line of a resolved bill of materials.
type NecessidadeMaterial struct {
	MaterialID  string          `json:"material_id"`
	Nome        string          `json:"nome"`
	Unidade     string          `json:"unidade"`
	Tipo        string          `json:"tipo"`
	Quantidade  decimal.Decimal `json:"quantidade"`
	SemControle bool            `json:"sem_controle"`
}

// RegistroAuditoriaResponse is one persisted audit entry. Snapshots are the
// JSON stored at the time of the change.
type RegistroAuditoriaResponse struct {
	ID          string          `json:"id"`
	Acao        string          `json:"acao"`
	Tabela      string          `json:"tabela"`
	RegistroID  string          `json:"registro_id"`
	Anterior    json.RawMessage `json:"anterior,omitempty"`
	Novo        json.RawMessage `json:"novo,omitempty"`
	UsuarioID   string          `json:"usuario_id"`
	UsuarioNome string          `json:"usuario_nome"`
	OcorridoEm  time.Time       `json:"ocorrido_em"`
}

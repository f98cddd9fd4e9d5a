package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var operadorTeste = model.Operador{
	ID:   uuid.MustParse("5b1f0b7e-2d0e-4c55-9a57-3f1c2a9e7d10"),
	Nome: "Oficina",
}

// ── In-memory audit sink ─────────────────────────────────────────────────────

type auditoriaMemoria struct {
	mu      sync.Mutex
	eventos []model.EventoAuditoria
}

func (a *auditoriaMemoria) Registrar(_ context.Context, ev model.EventoAuditoria) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eventos = append(a.eventos, ev)
}

func (a *auditoriaMemoria) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.eventos)
}

func (a *auditoriaMemoria) porTabela(tabela string) []model.EventoAuditoria {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.EventoAuditoria
	for _, ev := range a.eventos {
		if ev.Tabela == tabela {
			out = append(out, ev)
		}
	}
	return out
}

// ── Environment ──────────────────────────────────────────────────────────────

type ambiente struct {
	db            *gorm.DB
	materiais     repository.MaterialRepository
	movimentacoes repository.MovimentacaoRepository
	produtos      repository.ProdutoRepository
	lotes         repository.LoteRepository
	encomendas    repository.EncomendaRepository
	producao      repository.ProducaoRepository

	receitas service.ReceitaService
	estoque  service.EstoqueService
	registro service.RegistroLotes
	engine   service.ProducaoService
	perdas   service.PerdaService
	aud      *auditoriaMemoria
}

func novoBanco(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:producao_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Material{},
		&model.Produto{},
		&model.ItemReceita{},
		&model.ComponenteKit{},
		&model.Variante{},
		&model.Encomenda{},
		&model.ItemEncomenda{},
		&model.LoteProducao{},
		&model.EventoEtapa{},
		&model.PerdaProducao{},
		&model.MovimentacaoEstoque{},
		&model.HistoricoProducao{},
		&model.RegistroAuditoria{},
	))
	return db
}

func novoAmbiente(t *testing.T) *ambiente {
	t.Helper()
	db := novoBanco(t)
	a := &ambiente{
		db:            db,
		materiais:     repository.NewMaterialRepository(db),
		movimentacoes: repository.NewMovimentacaoRepository(db),
		produtos:      repository.NewProdutoRepository(db),
		lotes:         repository.NewLoteRepository(db),
		encomendas:    repository.NewEncomendaRepository(db),
		producao:      repository.NewProducaoRepository(db),
		aud:           &auditoriaMemoria{},
	}
	m := metrics.NewProducaoMetrics(nil)
	a.receitas = service.NewReceitaService(a.produtos)
	a.estoque = service.NewEstoqueService(a.materiais, a.movimentacoes, a.produtos, a.aud)
	a.registro = service.NewRegistroLotes(a.lotes, a.producao)
	a.engine = service.NewProducaoService(a.lotes, a.produtos, a.encomendas, a.producao,
		a.receitas, a.estoque, a.registro, a.aud, m)
	a.perdas = service.NewPerdaService(a.lotes, a.producao, a.registro, a.aud, m)
	return a
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// material creates a material and books its opening stock as an ENTRADA so
// the ledger invariant holds from the start.
func (a *ambiente) material(t *testing.T, nome, tipo, unidade, estoque string) *model.Material {
	t.Helper()
	m := &model.Material{Nome: nome, Tipo: tipo, Unidade: unidade}
	require.NoError(t, a.materiais.Create(context.Background(), m))
	if q := dec(estoque); q.IsPositive() {
		_, err := a.estoque.RegistrarEntrada(context.Background(), m.ID, dto.EntradaMaterialRequest{
			Quantidade: q,
			Nota:       "estoque inicial",
		}, operadorTeste)
		require.NoError(t, err)
	}
	return m
}

type linha struct {
	material   *model.Material
	quantidade string
}

func (a *ambiente) produto(t *testing.T, nome string, receita ...linha) *model.Produto {
	t.Helper()
	p := &model.Produto{Nome: nome}
	for i, l := range receita {
		p.Receita = append(p.Receita, model.ItemReceita{
			MaterialID: l.material.ID,
			Quantidade: dec(l.quantidade),
			Ordem:      i,
		})
	}
	require.NoError(t, a.produtos.Create(context.Background(), p))
	return p
}

type componente struct {
	produto    *model.Produto
	quantidade int
}

func (a *ambiente) kit(t *testing.T, nome string, comps ...componente) *model.Produto {
	t.Helper()
	k := &model.Produto{Nome: nome}
	for _, c := range comps {
		k.Componentes = append(k.Componentes, model.ComponenteKit{ProdutoID: c.produto.ID, Quantidade: c.quantidade})
	}
	require.NoError(t, a.produtos.Create(context.Background(), k))
	return k
}

func (a *ambiente) variante(t *testing.T, p *model.Produto, nome string, m *model.Material, qtd string) *model.Variante {
	t.Helper()
	v := &model.Variante{ProdutoID: p.ID, Nome: nome}
	if m != nil {
		v.MaterialID = &m.ID
		v.QuantidadeMaterial = dec(qtd)
	}
	require.NoError(t, a.db.Create(v).Error)
	return v
}

func (a *ambiente) estoqueProduto(t *testing.T, p *model.Produto, n int) {
	t.Helper()
	require.NoError(t, a.db.Model(&model.Produto{}).Where("id = ?", p.ID).Update("estoque_atual", n).Error)
}

func (a *ambiente) encomenda(t *testing.T, entrega *time.Time, itens ...model.ItemEncomenda) *model.Encomenda {
	t.Helper()
	e := &model.Encomenda{Cliente: "Cliente Teste", DataEntrega: entrega, Status: model.EncomendaPendente, Itens: itens}
	require.NoError(t, a.encomendas.Create(context.Background(), e))
	return e
}

func (a *ambiente) saldo(t *testing.T, m *model.Material) decimal.Decimal {
	t.Helper()
	atual, err := a.materiais.FindByID(context.Background(), m.ID)
	require.NoError(t, err)
	return atual.EstoqueAtual
}

func (a *ambiente) lote(t *testing.T, id string) *model.LoteProducao {
	t.Helper()
	l, err := a.lotes.FindByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	return l
}

func (a *ambiente) iniciar(t *testing.T, req dto.IniciarProducaoRequest) dto.LoteResponse {
	t.Helper()
	resp, err := a.engine.Iniciar(context.Background(), req, operadorTeste)
	require.NoError(t, err)
	return resp.Lote
}

// avancarTudo moves the whole batch one stage forward.
func (a *ambiente) avancarTudo(t *testing.T, loteID string, req dto.AvancarLoteRequest) *dto.AvancoResponse {
	t.Helper()
	l := a.lote(t, loteID)
	prox, ok := l.Etapa.Proxima()
	require.True(t, ok, "lote já está na última etapa")
	req.EtapaOrigem = l.Etapa.String()
	req.EtapaDestino = prox.String()
	req.Quantidade = l.Quantidade
	req.QuantidadeTotal = l.Quantidade
	resp, err := a.engine.Avancar(context.Background(), l.ID, req, operadorTeste)
	require.NoError(t, err)
	return resp
}

// avancarAte moves the whole batch forward until it reaches destino.
func (a *ambiente) avancarAte(t *testing.T, loteID string, destino model.Etapa) {
	t.Helper()
	for a.lote(t, loteID).Etapa != destino {
		a.avancarTudo(t, loteID, dto.AvancarLoteRequest{})
	}
}

func (a *ambiente) contarMovimentacoes(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(&model.MovimentacaoEstoque{}).Count(&n).Error)
	return n
}

func (a *ambiente) contarLotes(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(&model.LoteProducao{}).Count(&n).Error)
	return n
}

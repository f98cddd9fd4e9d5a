package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadro_OrdemDasColunas(t *testing.T) {
	a := novoAmbiente(t)
	ctx := context.Background()
	p := a.produto(t, "Caneca")
	d0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	d1 := d0.Add(24 * time.Hour)
	d2 := d1.Add(24 * time.Hour)
	entrega := d2.Add(72 * time.Hour)
	enc := a.encomenda(t, &entrega, model.ItemEncomenda{ProdutoID: p.ID, Quantidade: 1})

	semEncomenda := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 1, Prioridade: 1, DataInicio: &d1})
	urgente := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 1, Prioridade: 5, DataInicio: &d2})
	antigo := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 1, Prioridade: 1, DataInicio: &d0})
	comPrazo := a.iniciar(t, dto.IniciarProducaoRequest{
		ProdutoID:       p.ID.String(),
		Quantidade:      1,
		Prioridade:      1,
		DataInicio:      &d1,
		EncomendaID:     strPtr(enc.ID.String()),
		ItemEncomendaID: strPtr(enc.Itens[0].ID.String()),
	})
	adiantado := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 2})
	a.avancarTudo(t, adiantado.ID, dto.AvancarLoteRequest{})

	quadro, err := a.registro.Quadro(ctx)
	require.NoError(t, err)
	require.Len(t, quadro.Colunas, len(model.Etapas))
	for i, col := range quadro.Colunas {
		assert.Equal(t, model.Etapas[i].String(), col.Etapa)
	}

	var ids []string
	for _, l := range quadro.Colunas[0].Lotes {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{urgente.ID, antigo.ID, comPrazo.ID, semEncomenda.ID}, ids)

	require.Len(t, quadro.Colunas[1].Lotes, 1)
	assert.Equal(t, adiantado.ID, quadro.Colunas[1].Lotes[0].ID)
	assert.Equal(t, "Caneca", quadro.Colunas[1].Lotes[0].Produto)
	for _, col := range quadro.Colunas[2:] {
		assert.Empty(t, col.Lotes)
	}

	fila, err := a.registro.ListarPorEtapa(ctx, model.EtapaFilaDeEspera)
	require.NoError(t, err)
	require.Len(t, fila, 4)
	assert.Equal(t, urgente.ID, fila[0].ID)
}

func TestListarPorEtapa_EtapaDesconhecida(t *testing.T) {
	a := novoAmbiente(t)
	_, err := a.registro.ListarPorEtapa(context.Background(), model.Etapa("Pintura"))
	assert.True(t, apperror.Is(err, apperror.CodeValidacao))
}

func TestObter_HistoricoCompleto(t *testing.T) {
	a := novoAmbiente(t)
	ctx := context.Background()
	p := a.produto(t, "Caneca")
	l := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 2})
	a.avancarAte(t, l.ID, model.EtapaBiscoito)

	resp, err := a.registro.Obter(ctx, uuid.MustParse(l.ID))
	require.NoError(t, err)
	assert.Equal(t, model.EtapaBiscoito.String(), resp.Etapa)
	require.Len(t, resp.Eventos, 4)
	assert.Equal(t, model.EventoCriacao, resp.Eventos[0].Tipo)
	for _, e := range resp.Eventos[1:] {
		assert.Equal(t, model.EventoEntrada, e.Tipo)
	}
	for _, chave := range []string{"Criação", "Modelagem", "Secagem", "Biscoito"} {
		assert.Contains(t, resp.Historico, chave)
	}

	_, err = a.registro.Obter(ctx, uuid.New())
	assert.True(t, apperror.Is(err, apperror.CodeNaoEncontrado))
}

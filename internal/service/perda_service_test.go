package service_test

import (
	"context"
	"testing"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrarPerda_LoteDeEncomendaGeraReposicao(t *testing.T) {
	a := novoAmbiente(t)
	ctx := context.Background()
	argila := a.material(t, "Argila", model.TipoArgila, "kg", "100")
	p := a.produto(t, "Travessa", linha{argila, "2"})
	enc := a.encomenda(t, nil, model.ItemEncomenda{ProdutoID: p.ID, Quantidade: 5})
	item := enc.Itens[0]
	l := a.iniciar(t, dto.IniciarProducaoRequest{
		ProdutoID:       p.ID.String(),
		Quantidade:      5,
		Prioridade:      3,
		EncomendaID:     strPtr(enc.ID.String()),
		ItemEncomendaID: strPtr(item.ID.String()),
	})
	a.avancarAte(t, l.ID, model.EtapaQueimaDeAlta)
	saldo := a.saldo(t, argila)

	resp, err := a.perdas.RegistrarPerda(ctx, uuid.MustParse(l.ID), dto.RegistrarPerdaRequest{
		Etapa:      model.EtapaQueimaDeAlta.String(),
		Quantidade: 2,
		Motivo:     "trincou no forno",
	}, operadorTeste)
	require.NoError(t, err)

	assert.True(t, resp.Reposto)
	require.NotNil(t, resp.Lote)
	assert.Equal(t, 3, resp.Lote.Quantidade)
	assert.Contains(t, resp.Lote.Historico, "Perda em Queima de Alta #1")

	require.NotNil(t, resp.LoteReposicao)
	rep := resp.LoteReposicao
	assert.Equal(t, model.EtapaFilaDeEspera.String(), rep.Etapa)
	assert.Equal(t, 2, rep.Quantidade)
	assert.Equal(t, 3, rep.Prioridade)
	require.NotNil(t, rep.EncomendaID)
	require.NotNil(t, rep.ItemEncomendaID)
	assert.Equal(t, enc.ID.String(), *rep.EncomendaID)
	assert.Equal(t, item.ID.String(), *rep.ItemEncomendaID)
	assert.Contains(t, rep.Observacoes, "Reposição de quebra")
	assert.False(t, rep.MateriaisDeduzidos)

	var perdas []model.PerdaProducao
	require.NoError(t, a.db.Find(&perdas).Error)
	require.Len(t, perdas, 1)
	assert.Equal(t, 2, perdas[0].Quantidade)
	assert.Equal(t, model.EtapaQueimaDeAlta, perdas[0].Etapa)
	assert.Equal(t, "trincou no forno", perdas[0].Motivo)
	require.NotNil(t, perdas[0].EncomendaID)

	// breakage never returns material
	assert.True(t, saldo.Equal(a.saldo(t, argila)))

	// the surviving 3 finalize; the order still waits for the replacement
	fin, err := a.engine.Finalizar(ctx, uuid.MustParse(l.ID), dto.FinalizarLoteRequest{Quantidade: 3, IncrementarEstoque: true}, operadorTeste)
	require.NoError(t, err)
	assert.False(t, fin.EncomendaConcluida)
	atual, err := a.encomendas.FindByID(ctx, enc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, atual.Itens[0].QuantidadeProduzida)
	assert.Equal(t, model.EncomendaProducao, atual.Status)

	a.avancarAte(t, rep.ID, model.EtapaQueimaDeAlta)
	fin, err = a.engine.Finalizar(ctx, uuid.MustParse(rep.ID), dto.FinalizarLoteRequest{Quantidade: 2, IncrementarEstoque: true}, operadorTeste)
	require.NoError(t, err)
	assert.True(t, fin.EncomendaConcluida)

	atual, err = a.encomendas.FindByID(ctx, enc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EncomendaConcluida, atual.Status)
	prod, err := a.produtos.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, prod.EstoqueAtual)
	a.assertLivroConsistente(t, argila)
}

func TestRegistrarPerda_EstoqueSemReposicao(t *testing.T) {
	a := novoAmbiente(t)
	p := a.produto(t, "Vaso")
	l := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 4})
	a.avancarAte(t, l.ID, model.EtapaSecagem)

	resp, err := a.perdas.RegistrarPerda(context.Background(), uuid.MustParse(l.ID), dto.RegistrarPerdaRequest{Quantidade: 1, Motivo: "rachou"}, operadorTeste)
	require.NoError(t, err)
	assert.False(t, resp.Reposto)
	assert.Nil(t, resp.LoteReposicao)
	require.NotNil(t, resp.Lote)
	assert.Equal(t, 3, resp.Lote.Quantidade)
	assert.Equal(t, int64(1), a.contarLotes(t))
}

func TestRegistrarPerda_PerdaTotalRemoveLote(t *testing.T) {
	a := novoAmbiente(t)
	p := a.produto(t, "Vaso")
	l := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 2})
	a.avancarAte(t, l.ID, model.EtapaBiscoito)

	resp, err := a.perdas.RegistrarPerda(context.Background(), uuid.MustParse(l.ID), dto.RegistrarPerdaRequest{Quantidade: 2}, operadorTeste)
	require.NoError(t, err)
	assert.Nil(t, resp.Lote)
	assert.Equal(t, int64(0), a.contarLotes(t))

	var eventos int64
	require.NoError(t, a.db.Model(&model.EventoEtapa{}).Count(&eventos).Error)
	assert.Zero(t, eventos)
	assert.Len(t, a.aud.porTabela("production_losses"), 1)
}

func TestRegistrarPerda_PerdasRepetidasNaoSeSobrescrevem(t *testing.T) {
	a := novoAmbiente(t)
	ctx := context.Background()
	p := a.produto(t, "Vaso")
	l := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 6})
	a.avancarAte(t, l.ID, model.EtapaSecagem)

	for i := 0; i < 2; i++ {
		_, err := a.perdas.RegistrarPerda(ctx, uuid.MustParse(l.ID), dto.RegistrarPerdaRequest{Quantidade: 1}, operadorTeste)
		require.NoError(t, err)
	}

	mapa := a.lote(t, l.ID).HistoricoMapa()
	assert.Contains(t, mapa, "Perda em Secagem #1")
	assert.Contains(t, mapa, "Perda em Secagem #2")
	assert.Contains(t, mapa, "Secagem")
	assert.Equal(t, 4, a.lote(t, l.ID).Quantidade)
}

func TestRegistrarPerda_Validacao(t *testing.T) {
	a := novoAmbiente(t)
	ctx := context.Background()
	p := a.produto(t, "Vaso")
	l := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 3})
	loteID := uuid.MustParse(l.ID)

	cases := []struct {
		name string
		req  dto.RegistrarPerdaRequest
		code apperror.Code
	}{
		{"etapa diferente da atual", dto.RegistrarPerdaRequest{Etapa: model.EtapaSecagem.String(), Quantidade: 1}, apperror.CodeTransicaoInvalida},
		{"etapa desconhecida", dto.RegistrarPerdaRequest{Etapa: "Pintura", Quantidade: 1}, apperror.CodeTransicaoInvalida},
		{"quantidade zero", dto.RegistrarPerdaRequest{Quantidade: 0}, apperror.CodeTransicaoInvalida},
		{"quantidade acima do lote", dto.RegistrarPerdaRequest{Quantidade: 4}, apperror.CodeTransicaoInvalida},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.perdas.RegistrarPerda(ctx, loteID, tc.req, operadorTeste)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tc.code), "erro: %v", err)
		})
	}

	_, err := a.perdas.RegistrarPerda(ctx, uuid.New(), dto.RegistrarPerdaRequest{Quantidade: 1}, operadorTeste)
	assert.True(t, apperror.Is(err, apperror.CodeNaoEncontrado))
	assert.Equal(t, 3, a.lote(t, l.ID).Quantidade)
}

func TestConservacao_IniciadasIgualAEmProducaoFinalizadasEPerdidas(t *testing.T) {
	a := novoAmbiente(t)
	ctx := context.Background()
	p := a.produto(t, "Caneca")
	l := a.iniciar(t, dto.IniciarProducaoRequest{ProdutoID: p.ID.String(), Quantidade: 12})
	origem := uuid.MustParse(l.ID)

	a.avancarTudo(t, l.ID, dto.AvancarLoteRequest{})
	resp, err := a.engine.Avancar(ctx, origem, dto.AvancarLoteRequest{
		EtapaOrigem:     model.EtapaModelagem.String(),
		EtapaDestino:    model.EtapaSecagem.String(),
		Quantidade:      5,
		QuantidadeTotal: 12,
	}, operadorTeste)
	require.NoError(t, err)
	cinco := resp.Lote.ID

	_, err = a.perdas.RegistrarPerda(ctx, origem, dto.RegistrarPerdaRequest{Quantidade: 2}, operadorTeste)
	require.NoError(t, err)
	a.avancarAte(t, cinco, model.EtapaQueimaDeAlta)
	_, err = a.perdas.RegistrarPerda(ctx, uuid.MustParse(cinco), dto.RegistrarPerdaRequest{Quantidade: 1}, operadorTeste)
	require.NoError(t, err)
	_, err = a.engine.Finalizar(ctx, uuid.MustParse(cinco), dto.FinalizarLoteRequest{Quantidade: 3}, operadorTeste)
	require.NoError(t, err)

	lin, err := a.registro.ListarLinhagem(ctx, origem)
	require.NoError(t, err)
	assert.Equal(t, l.ID, lin.LoteOrigemID)
	assert.Len(t, lin.Lotes, 1)
	assert.Equal(t, 6, lin.EmProducao)
	assert.Equal(t, 3, lin.Finalizadas)
	assert.Equal(t, 3, lin.Perdidas)
	assert.Equal(t, 12, lin.Total)
}

func TestListarLinhagem_ReposicaoIniciaNovaLinhagem(t *testing.T) {
	a := novoAmbiente(t)
	ctx := context.Background()
	p := a.produto(t, "Prato")
	e := a.encomenda(t, nil, model.ItemEncomenda{ProdutoID: p.ID, Quantidade: 4})
	l := a.iniciar(t, dto.IniciarProducaoRequest{
		ProdutoID:       p.ID.String(),
		Quantidade:      4,
		EncomendaID:     strPtr(e.ID.String()),
		ItemEncomendaID: strPtr(e.Itens[0].ID.String()),
	})

	resp, err := a.perdas.RegistrarPerda(ctx, uuid.MustParse(l.ID), dto.RegistrarPerdaRequest{Quantidade: 4}, operadorTeste)
	require.NoError(t, err)
	require.NotNil(t, resp.LoteReposicao)

	lin, err := a.registro.ListarLinhagem(ctx, uuid.MustParse(l.ID))
	require.NoError(t, err)
	assert.Empty(t, lin.Lotes)
	assert.Equal(t, 4, lin.Perdidas)
	assert.Equal(t, 4, lin.Total)

	nova, err := a.registro.ListarLinhagem(ctx, uuid.MustParse(resp.LoteReposicao.ID))
	require.NoError(t, err)
	require.Len(t, nova.Lotes, 1)
	assert.Equal(t, 4, nova.EmProducao)
	assert.Zero(t, nova.Perdidas)
}

func TestListarLinhagem_Inexistente(t *testing.T) {
	a := novoAmbiente(t)
	_, err := a.registro.ListarLinhagem(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeNaoEncontrado))
}

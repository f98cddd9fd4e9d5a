package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/config"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/dto"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/middleware"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/router"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const segredo = "segredo-de-teste-com-mais-de-32-caracteres"

type servidor struct {
	engine   *gin.Engine
	db       *gorm.DB
	token    string
	material *model.Material
	produto  *model.Produto
}

func novoServidor(t *testing.T) *servidor {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:router_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&model.Material{}, &model.Produto{}, &model.ItemReceita{}, &model.ComponenteKit{},
		&model.Variante{}, &model.Encomenda{}, &model.ItemEncomenda{}, &model.LoteProducao{},
		&model.EventoEtapa{}, &model.PerdaProducao{}, &model.MovimentacaoEstoque{},
		&model.HistoricoProducao{}, &model.RegistroAuditoria{},
	))

	argila := &model.Material{Nome: "Argila vermelha", Tipo: model.TipoArgila, Unidade: "kg"}
	require.NoError(t, db.Create(argila).Error)
	caneca := &model.Produto{Nome: "Caneca", Receita: []model.ItemReceita{
		{MaterialID: argila.ID, Quantidade: decimal.NewFromInt(2)},
	}}
	require.NoError(t, db.Create(caneca).Error)

	reg := prometheus.NewRegistry()
	svc := router.NovosServicos(db, service.NewAuditoriaLog(), metrics.NewProducaoMetrics(reg))
	cfg := &config.Config{Env: "test", JWTSecret: segredo}

	return &servidor{
		engine:   router.New(cfg, db, nil, svc, reg),
		db:       db,
		token:    token(t, "administrador"),
		material: argila,
		produto:  caneca,
	}
}

func token(t *testing.T, rol string) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID: uuid.NewString(),
		Nome:   "Marta",
		Rol:    rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(segredo))
	require.NoError(t, err)
	return s
}

func (s *servidor) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type erroAPI struct {
	Detail   string         `json:"detail"`
	Codigo   string         `json:"codigo"`
	Detalhes map[string]any `json:"detalhes"`
}

func (s *servidor) iniciar(t *testing.T, qtd int) dto.LoteResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/producao/lotes", s.token, map[string]any{
		"produto_id": s.produto.ID.String(),
		"quantidade": qtd,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.IniciarProducaoResponse](t, w).Lote
}

func TestFluxoHTTP_EntradaIniciarAvancar(t *testing.T) {
	s := novoServidor(t)
	base := "/v1/estoque/materiais/" + s.material.ID.String()

	w := s.do(t, http.MethodPost, base+"/entrada", s.token, map[string]any{"quantidade": "10", "custo": "50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	lote := s.iniciar(t, 3)
	assert.Equal(t, string(model.EtapaFilaDeEspera), lote.Etapa)

	w = s.do(t, http.MethodPost, "/v1/producao/lotes/"+lote.ID+"/avancar", s.token, map[string]any{
		"etapa_origem":     "Fila de Espera",
		"etapa_destino":    "Modelagem",
		"quantidade":       3,
		"quantidade_total": 3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	avanco := decode[dto.AvancoResponse](t, w)
	assert.Equal(t, "Modelagem", avanco.Lote.Etapa)
	require.Len(t, avanco.Deducoes, 1)
	assert.True(t, avanco.Deducoes[0].Quantidade.Equal(decimal.NewFromInt(-6)))
	assert.Equal(t, "Marta", avanco.Deducoes[0].UsuarioNome)

	w = s.do(t, http.MethodGet, "/v1/producao/lotes/"+lote.ID, s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	obtido := decode[dto.LoteResponse](t, w)
	assert.Contains(t, obtido.Historico, "Modelagem")

	w = s.do(t, http.MethodGet, base+"/conferencia", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	conf := decode[dto.ConferenciaResponse](t, w)
	assert.True(t, conf.Consistente)
	assert.True(t, conf.EstoqueAtual.Equal(decimal.NewFromInt(4)))

	w = s.do(t, http.MethodGet, base+"/movimentacoes?limit=1", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	lista := decode[dto.MovimentacaoListResponse](t, w)
	assert.EqualValues(t, 2, lista.Total)
	assert.Len(t, lista.Data, 1)
}

func TestFluxoHTTP_EstoqueInsuficienteDevolve422(t *testing.T) {
	s := novoServidor(t)
	w := s.do(t, http.MethodPost, "/v1/estoque/materiais/"+s.material.ID.String()+"/entrada", s.token,
		map[string]any{"quantidade": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	lote := s.iniciar(t, 3)
	w = s.do(t, http.MethodPost, "/v1/producao/lotes/"+lote.ID+"/avancar", s.token, map[string]any{
		"etapa_origem":     "Fila de Espera",
		"etapa_destino":    "Modelagem",
		"quantidade":       3,
		"quantidade_total": 3,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	e := decode[erroAPI](t, w)
	assert.Equal(t, "ESTOQUE_INSUFICIENTE", e.Codigo)
	assert.Equal(t, "Argila vermelha", e.Detalhes["item"])
	assert.Equal(t, "2", e.Detalhes["falta"])
}

func TestFluxoHTTP_ErrosDeEntrada(t *testing.T) {
	s := novoServidor(t)

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
		body   any
		status int
		codigo string
	}{
		{"sem token", http.MethodGet, "/v1/producao/quadro", "", nil, http.StatusUnauthorized, ""},
		{"token de outro segredo", http.MethodGet, "/v1/producao/quadro", "abc.def.ghi", nil, http.StatusUnauthorized, ""},
		{"quantidade zero", http.MethodPost, "/v1/producao/lotes", s.token,
			map[string]any{"produto_id": s.produto.ID.String(), "quantidade": 0}, http.StatusBadRequest, "VALIDACAO"},
		{"json quebrado", http.MethodPost, "/v1/producao/lotes", s.token, "{", http.StatusBadRequest, "VALIDACAO"},
		{"id inválido", http.MethodGet, "/v1/producao/lotes/xyz", s.token, nil, http.StatusBadRequest, "VALIDACAO"},
		{"lote inexistente", http.MethodGet, "/v1/producao/lotes/" + uuid.NewString(), s.token, nil, http.StatusNotFound, "NAO_ENCONTRADO"},
		{"etapa desconhecida", http.MethodGet, "/v1/producao/quadro?etapa=Pintura", s.token, nil, http.StatusBadRequest, "VALIDACAO"},
		{"ajuste sem papel", http.MethodPost, "/v1/estoque/materiais/" + s.material.ID.String() + "/ajuste", token(t, "ceramista"),
			map[string]any{"delta": "1", "nota": "inventário"}, http.StatusForbidden, ""},
		{"quantidade de materiais inválida", http.MethodGet, "/v1/produtos/" + s.produto.ID.String() + "/materiais?quantidade=abc", s.token, nil, http.StatusBadRequest, "VALIDACAO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.tok, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.codigo != "" {
				assert.Equal(t, tt.codigo, decode[erroAPI](t, w).Codigo)
			}
		})
	}
}

func TestFluxoHTTP_DetalhesDeValidacaoUsamNomesJSON(t *testing.T) {
	s := novoServidor(t)
	w := s.do(t, http.MethodPost, "/v1/producao/lotes", s.token, map[string]any{"quantidade": 2})
	require.Equal(t, http.StatusBadRequest, w.Code)
	e := decode[erroAPI](t, w)
	assert.Equal(t, "required", e.Detalhes["produto_id"])
}

func TestFluxoHTTP_ProdutosEQuadro(t *testing.T) {
	s := novoServidor(t)
	s.iniciar(t, 2)

	w := s.do(t, http.MethodGet, "/v1/produtos/"+s.produto.ID.String()+"/materiais?quantidade=5", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[dto.ResolucaoResponse](t, w)
	require.Len(t, res.Materiais, 1)
	assert.True(t, res.Materiais[0].Quantidade.Equal(decimal.NewFromInt(10)))

	w = s.do(t, http.MethodGet, "/v1/produtos/"+s.produto.ID.String()+"/estoque", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/v1/produtos/"+s.produto.ID.String()+"/baixa", s.token, map[string]any{"quantidade": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "ESTOQUE_INSUFICIENTE", decode[erroAPI](t, w).Codigo)

	w = s.do(t, http.MethodGet, "/v1/producao/quadro", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	quadro := decode[dto.QuadroResponse](t, w)
	require.Len(t, quadro.Colunas, len(model.Etapas))
	assert.Len(t, quadro.Colunas[0].Lotes, 1)

	w = s.do(t, http.MethodGet, "/v1/producao/quadro?etapa=Fila%20de%20Espera", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.LoteResponse](t, w), 1)

	w = s.do(t, http.MethodGet, "/v1/estoque/alertas", s.token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEMetrics(t *testing.T) {
	s := novoServidor(t)
	s.iniciar(t, 1)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "desativado", health["redis"])
	assert.Equal(t, "conectado", health["db"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `producao_operacoes_total{operacao="iniciar",resultado="ok"} 1`), w.Body.String())
}

func TestFluxoHTTP_LinhagemEMovimentacoesPorLote(t *testing.T) {
	s := novoServidor(t)
	base := "/v1/estoque/materiais/" + s.material.ID.String()
	w := s.do(t, http.MethodPost, base+"/entrada", s.token, map[string]any{"quantidade": "10"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	lote := s.iniciar(t, 3)
	w = s.do(t, http.MethodPost, "/v1/producao/lotes/"+lote.ID+"/avancar", s.token, map[string]any{
		"etapa_origem":     "Fila de Espera",
		"etapa_destino":    "Modelagem",
		"quantidade":       2,
		"quantidade_total": 3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/v1/producao/lotes/"+lote.ID+"/linhagem", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	lin := decode[dto.LinhagemResponse](t, w)
	assert.Len(t, lin.Lotes, 2)
	assert.Equal(t, 3, lin.EmProducao)
	assert.Equal(t, 3, lin.Total)

	w = s.do(t, http.MethodGet, base+"/movimentacoes?lote_id="+lote.ID, s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	movs := decode[dto.MovimentacaoListResponse](t, w)
	require.EqualValues(t, 1, movs.Total)
	assert.True(t, movs.Data[0].Quantidade.Equal(decimal.NewFromInt(-4)))

	w = s.do(t, http.MethodGet, base+"/movimentacoes?lote_id="+uuid.NewString(), s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[dto.MovimentacaoListResponse](t, w).Total)

	w = s.do(t, http.MethodGet, base+"/movimentacoes?lote_id=abc", s.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/producao/lotes/"+uuid.NewString()+"/linhagem", s.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSwaggerSomenteForaDeProducao(t *testing.T) {
	s := novoServidor(t)
	w := s.do(t, http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	db := s.db
	cfg := &config.Config{Env: "production", JWTSecret: segredo}
	prod := router.New(cfg, db, nil, router.NovosServicos(db, service.NewAuditoriaLog(), nil), nil)
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	rec := httptest.NewRecorder()
	prod.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	gin.SetMode(gin.TestMode)
}

func TestFluxoHTTP_Auditoria(t *testing.T) {
	s := novoServidor(t)
	reg := &model.RegistroAuditoria{
		Acao: model.AcaoAtualizar, Tabela: "materials", RegistroID: s.material.ID.String(),
		Novo: `{"estoque_atual":"10"}`, UsuarioNome: "Marta", OcorridoEm: time.Now().UTC(),
	}
	require.NoError(t, s.db.Create(reg).Error)

	path := "/v1/auditoria/materials/" + s.material.ID.String()
	w := s.do(t, http.MethodGet, path, s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rows := decode[[]dto.RegistroAuditoriaResponse](t, w)
	require.Len(t, rows, 1)
	assert.Equal(t, "Marta", rows[0].UsuarioNome)

	w = s.do(t, http.MethodGet, path, token(t, "ceramista"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/v1/auditoria/usuarios/"+s.material.ID.String(), s.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

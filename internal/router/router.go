package router

import (
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/config"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/handler"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/metrics"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/middleware"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/repository"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Servicos is the service graph shared by the HTTP layer and the workers.
type Servicos struct {
	Receitas  service.ReceitaService
	Estoque   service.EstoqueService
	Registro  service.RegistroLotes
	Producao  service.ProducaoService
	Perdas    service.PerdaService
	Auditoria service.ConsultaAuditoria
}

// NovosServicos wires Service ← Repository ← DB.
func NovosServicos(db *gorm.DB, aud service.Auditoria, m *metrics.ProducaoMetrics) Servicos {
	materiais := repository.NewMaterialRepository(db)
	movimentacoes := repository.NewMovimentacaoRepository(db)
	produtos := repository.NewProdutoRepository(db)
	lotes := repository.NewLoteRepository(db)
	encomendas := repository.NewEncomendaRepository(db)
	producao := repository.NewProducaoRepository(db)

	receitas := service.NewReceitaService(produtos)
	estoque := service.NewEstoqueService(materiais, movimentacoes, produtos, aud)
	registro := service.NewRegistroLotes(lotes, producao)
	return Servicos{
		Receitas:  receitas,
		Estoque:   estoque,
		Registro:  registro,
		Producao:  service.NewProducaoService(lotes, produtos, encomendas, producao, receitas, estoque, registro, aud, m),
		Perdas:    service.NewPerdaService(lotes, producao, registro, aud, m),
		Auditoria: service.NewConsultaAuditoria(repository.NewAuditoriaRepository(db)),
	}
}

// New returns the configured Gin engine. rdb may be nil when the audit
// queue is disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svc Servicos, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// order matters: request id first so every later log line carries it
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(""))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.NewRateLimiter(1000, time.Minute).Middleware())

	producaoH := handler.NewProducaoHandler(svc.Producao, svc.Perdas, svc.Registro)
	produtosH := handler.NewProdutosHandler(svc.Receitas, svc.Estoque)
	estoqueH := handler.NewEstoqueHandler(svc.Estoque)
	auditoriaH := handler.NewAuditoriaHandler(svc.Auditoria)

	// Public
	r.GET("/health", handler.Health(db, rdb))
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		prod := v1.Group("/producao")
		{
			prod.POST("/lotes", producaoH.Iniciar)
			prod.GET("/lotes/:id", producaoH.Obter)
			prod.GET("/lotes/:id/linhagem", producaoH.Linhagem)
			prod.POST("/lotes/:id/avancar", producaoH.Avancar)
			prod.POST("/lotes/:id/finalizar", producaoH.Finalizar)
			prod.POST("/lotes/:id/perdas", producaoH.RegistrarPerda)
			prod.GET("/quadro", producaoH.Quadro)
		}

		produtos := v1.Group("/produtos")
		{
			produtos.GET("/:id/materiais", produtosH.Materiais)
			produtos.GET("/:id/estoque", produtosH.Estoque)
			produtos.POST("/:id/baixa", produtosH.Baixa)
		}

		est := v1.Group("/estoque")
		{
			est.POST("/materiais/:id/entrada", estoqueH.Entrada)
			// manual corrections bypass the purchase flow
			est.POST("/materiais/:id/ajuste", middleware.RequireRole("supervisor", "administrador"), estoqueH.Ajuste)
			est.GET("/materiais/:id/movimentacoes", estoqueH.Movimentacoes)
			est.GET("/materiais/:id/conferencia", estoqueH.Conferencia)
			est.GET("/alertas", estoqueH.Alertas)
		}

		v1.GET("/auditoria/:tabela/:id", middleware.RequireRole("supervisor", "administrador"), auditoriaH.Listar)
	}

	// Swagger UI outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

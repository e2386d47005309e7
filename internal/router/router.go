package router

import (
	"time"

	"entrepeques/internal/agenda"
	"entrepeques/internal/config"
	"entrepeques/internal/handler"
	"entrepeques/internal/infra"
	"entrepeques/internal/middleware"
	"entrepeques/internal/pricing"
	"entrepeques/internal/repository"
	"entrepeques/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const priceCacheTTL = 10 * time.Minute

// Deps are the long-lived objects built by the composition root.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Calculator *pricing.Calculator
	Calendario *agenda.Calendario
	Notifier   service.Notifier
	Limiter    *middleware.IPRateLimiter
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware())
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	citaRepo := repository.NewCitaRepository(d.DB)
	subcatRepo := repository.NewSubcategoriaRepository(d.DB)
	clienteRepo := repository.NewClienteRepository(d.DB)
	ajusteRepo := repository.NewAjusteRepository(d.DB)
	valuacionRepo := repository.NewValuacionRepository(d.DB)
	precioRopaRepo := repository.NewPrecioRopaRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	citaSvc := service.NewCitaService(citaRepo, subcatRepo, clienteRepo, ajusteRepo, d.Calendario, d.Notifier,
		service.CitaOptions{
			MinArticulos: cfg.MinArticulos,
			MinPrendas:   cfg.MinPrendas,
			Timeout:      cfg.BookingTimeoutDuration(),
			Tienda:       cfg.StoreName,
			StoreEmail:   cfg.StoreEmail,
		})
	valuacionSvc := service.NewValuacionService(valuacionRepo, subcatRepo, clienteRepo, d.Calculator, d.Notifier,
		cfg.StoreName, cfg.PDFStoragePath)
	ropaSvc := service.NewRopaService(precioRopaRepo, subcatRepo, d.Calculator,
		infra.NewCache(d.Redis, service.PrefijoCacheRopa, priceCacheTTL))

	// ── Handlers ─────────────────────────────────────────────────────────────
	citasH := handler.NewCitasHandler(citaSvc)
	valuacionesH := handler.NewValuacionesHandler(valuacionSvc)
	ropaH := handler.NewRopaHandler(ropaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.Calculator.Policy().Version))

	pub := r.Group("/v1")
	{
		pub.POST("/valuaciones/calcular", valuacionesH.Calcular)
		pub.POST("/valuaciones/calcular-lote", valuacionesH.CalcularLote)

		pub.GET("/citas/subcategorias", citasH.Subcategorias)
		pub.GET("/citas/horarios/:fecha", citasH.Horarios)
		pub.GET("/citas/fechas-disponibles", citasH.FechasDisponibles)
		pub.GET("/citas/clientes/buscar", citasH.BuscarClientes)
		pub.POST("/citas", citasH.Reservar)
		pub.GET("/citas/nota", citasH.Nota)
	}

	// Employees only
	emp := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(middleware.RolesEmpleado...))
	{
		admin := emp.Group("/citas/admin")
		{
			admin.GET("", citasH.Listar)
			admin.GET("/stats", citasH.Stats)
			admin.GET("/subcategorias", citasH.Subcategorias)
			admin.PUT("/subcategorias/:id/toggle", citasH.ToggleCompras)
			admin.PUT("/nota", citasH.ActualizarNota)
			admin.GET("/:id", citasH.Obtener)
			admin.PUT("/:id/cancelar", citasH.Cancelar)
			admin.PUT("/:id/estado", citasH.ActualizarEstado)
		}

		ropa := emp.Group("/ropa")
		{
			ropa.POST("/calcular", ropaH.Calcular)
			ropa.GET("/precios", ropaH.ListarPrecios)
			ropa.GET("/tipos/:grupo", ropaH.TiposPrenda)
		}

		val := emp.Group("/valuaciones")
		{
			val.POST("", valuacionesH.Crear)
			val.GET("", valuacionesH.Listar)
			val.GET("/:id", valuacionesH.Obtener)
			val.POST("/:id/items", valuacionesH.AgregarItem)
			val.PUT("/:id/finalizar", valuacionesH.Finalizar)
			val.GET("/:id/pdf", valuacionesH.DescargarPDF)
		}
	}

	// Swagger UI, outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

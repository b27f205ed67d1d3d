package app

import (
	"net/http"
	"time"

	"requestflow/internal/handler"
	"requestflow/internal/middleware"
	"requestflow/internal/model"
	"requestflow/internal/repository"
	"requestflow/internal/service"
	"requestflow/internal/storage"
	"requestflow/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options carries the infrastructure built by main
type Options struct {
	DB             *gorm.DB
	Storage        storage.DocumentStorage
	Hub            *websocket.Hub
	JWTSecret      []byte
	TokenTTL       time.Duration
	SecureCookies  bool
	LogoLibrary    string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// App is the wired HTTP application
type App struct {
	Router *gin.Engine
	Users  service.UserService
}

// New sets up dependencies (Repository -> Service -> Handler) and the router
func New(opts Options) *App {
	db, logger := opts.DB, opts.Logger
	tx := repository.NewTransactionManager(db)

	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	purchaseStates := repository.NewRequestStateRepository(db, model.DomainPurchase)
	travelStates := repository.NewRequestStateRepository(db, model.DomainTravel)
	purchaseDiscussions := repository.NewDiscussionRepository(db, model.DomainPurchase)
	travelDiscussions := repository.NewDiscussionRepository(db, model.DomainTravel)

	purchaseFlow := service.NewWorkflowService(model.DomainPurchase, repository.NewApprovalRepository(db, model.DomainPurchase),
		purchaseStates, userRepo, auditRepo, tx, opts.Hub, logger)
	travelFlow := service.NewWorkflowService(model.DomainTravel, repository.NewApprovalRepository(db, model.DomainTravel),
		travelStates, userRepo, auditRepo, tx, opts.Hub, logger)
	submissions := service.NewSubmissionCoordinator(repository.NewSubmissionRunRepository(db), opts.Storage, tx, opts.Hub, logger)

	deps := service.RequestServiceDeps{
		Submissions: submissions,
		Rosters:     rosterRepo,
		Departments: departmentRepo,
		Teams:       teamRepo,
		Users:       userRepo,
		Audit:       auditRepo,
		Storage:     opts.Storage,
		Tx:          tx,
		Logger:      logger,
	}
	purchaseDeps := deps
	purchaseDeps.Workflow = purchaseFlow
	purchaseDeps.Attachments = repository.NewAttachmentRepository(db, model.DomainPurchase)
	purchaseService := service.NewPurchaseService(repository.NewPurchaseRequestRepository(db), purchaseDeps)

	travelDeps := deps
	travelDeps.Workflow = travelFlow
	travelDeps.Attachments = repository.NewAttachmentRepository(db, model.DomainTravel)
	travelService := service.NewTravelService(repository.NewTravelRequestRepository(db), travelDeps)

	discussionService := service.NewDiscussionService([]service.DiscussionScope{
		{Domain: model.DomainPurchase, Discussions: purchaseDiscussions, Requests: purchaseStates},
		{Domain: model.DomainTravel, Discussions: travelDiscussions, Requests: travelStates},
	}, userRepo, auditRepo, tx, opts.Hub, logger)

	userService := service.NewUserService(userRepo, service.AuthSettings{Secret: opts.JWTSecret, TTL: opts.TokenTTL})
	rosterService := service.NewRosterService(rosterRepo, departmentRepo, teamRepo, userRepo, auditRepo, tx, logger)
	directoryService := service.NewDirectoryService(departmentRepo, teamRepo, userRepo)
	dashboardService := service.NewDashboardService(
		service.DashboardScope{Domain: model.DomainPurchase, Requests: purchaseStates, Discussions: purchaseDiscussions, Workflow: purchaseFlow},
		service.DashboardScope{Domain: model.DomainTravel, Requests: travelStates, Discussions: travelDiscussions, Workflow: travelFlow},
	)
	brandingService := service.NewBrandingService(opts.Storage, opts.LogoLibrary, logger)
	auditService := service.NewAuditService(auditRepo)

	auth := middleware.NewAuth(opts.JWTSecret, opts.SecureCookies)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = opts.AllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": opts.Hub.Connected()})
	})
	router.GET("/ws", opts.Hub.ServeWs(auth))

	root := router.Group("")
	api := router.Group("/api", auth.RequireAuth())

	handler.NewUserHandler(userService, auth, opts.TokenTTL, logger).RegisterRoutes(root, api)
	handler.NewDirectoryHandler(directoryService, logger).RegisterRoutes(api)
	handler.NewRosterHandler(rosterService, logger).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, logger).RegisterRoutes(api)
	handler.NewPurchaseHandler(purchaseService, purchaseFlow, discussionService, logger).RegisterRoutes(api)
	handler.NewTravelHandler(travelService, travelFlow, discussionService, logger).RegisterRoutes(api)
	for _, flow := range []service.WorkflowService{purchaseFlow, travelFlow} {
		handler.NewApprovalHandler(flow, logger).RegisterRoutes(api)
		handler.NewDiscussionHandler(flow.Domain(), discussionService, logger).RegisterRoutes(api)
	}
	handler.NewSubmissionHandler(submissions, logger).RegisterRoutes(api)
	handler.NewDashboardHandler(dashboardService, logger).RegisterRoutes(api)
	handler.NewBrandingHandler(brandingService, logger).RegisterRoutes(api)

	return &App{Router: router, Users: userService}
}

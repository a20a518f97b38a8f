// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/auth"
	"github.com/kplanner/kplanner-backend/internal/config"
	"github.com/kplanner/kplanner-backend/internal/controller"
	"github.com/kplanner/kplanner-backend/internal/db"
	"github.com/kplanner/kplanner-backend/internal/middleware"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/queue"
	"github.com/kplanner/kplanner-backend/internal/repository"
	"github.com/kplanner/kplanner-backend/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	conn, err := db.Open(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Bootstrap(conn); err != nil {
		logger.Fatal("schema bootstrap failed", zap.Error(err))
	}

	entityRepo := &repository.EntityRepository{DB: conn}
	keywordRepo := &repository.KeywordRepository{DB: conn}
	relationRepo := &repository.RelationRepository{DB: conn}
	projectRepo := &repository.ProjectRepository{DB: conn}
	settingRepo := &repository.SettingRepository{DB: conn}
	mappingRepo := &repository.MappingRepository{DB: conn}

	relationService := &service.RelationService{
		Relations: relationRepo,
		Keywords:  keywordRepo,
		Cfg:       cfg,
		Log:       logger,
	}

	// With a broker the cleanup sweep runs in cmd/worker; without one it runs
	// in-process on the in-memory queue.
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL, logger)
		if err != nil {
			logger.Fatal("queue unavailable", zap.Error(err))
		}
		defer amqpQueue.Close()
		relationService.Queue = amqpQueue
	} else {
		memQueue := queue.NewInMemoryQueue(logger)
		memQueue.Subscribe(service.CleanupTopic, func(payload any) error {
			owner, ok := payload.(string)
			if !ok {
				return nil
			}
			_, err := relationService.SweepEmpty(owner)
			return err
		})
		relationService.Queue = memQueue
	}

	entityService := &service.EntityService{Repo: entityRepo, Cfg: cfg, Log: logger}
	keywordService := &service.KeywordService{
		Keywords:     keywordRepo,
		Entities:     entityRepo,
		Projects:     projectRepo,
		RelationRepo: relationRepo,
		Relations:    relationService,
		Cfg:          cfg,
		Log:          logger,
	}
	projectService := &service.ProjectService{Projects: projectRepo, Entities: entityRepo, Cfg: cfg, Log: logger}
	settingService := &service.SettingService{Settings: settingRepo, Cfg: cfg}
	mappingService := &service.MappingService{Mappings: mappingRepo, Entities: entityRepo}

	var authenticator auth.Authenticator
	if cfg.DevMode {
		authenticator = &auth.DevAuth{DemoUser: config.DemoUserID}
	} else {
		authenticator = auth.NewTokenAuth(cfg.AuthSecret)
	}

	keywordController := &controller.KeywordController{Keywords: keywordService, Relations: relationService}
	relationController := &controller.RelationController{Relations: relationService}
	projectController := &controller.ProjectController{Service: projectService}
	settingController := &controller.SettingController{Service: settingService}
	mappingController := &controller.MappingController{Service: mappingService}

	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		mode := "production"
		if cfg.DevMode {
			mode = "dev"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Keyword Planner API","mode":"` + mode + `"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(authenticator))

		for _, kind := range model.Kinds() {
			c := &controller.EntityController{Kind: kind, Service: entityService}
			r.Mount("/"+kind.Table(), c.Routes())
		}
		r.Mount("/keywords", keywordController.Routes())
		r.Mount("/relations", relationController.Routes())
		r.Mount("/projects", projectController.Routes())
		r.Mount("/settings", settingController.Routes())
		r.Mount("/column_mappings", mappingController.Routes())
	})

	logger.Info("server running", zap.String("addr", cfg.ServerAddr))
	if err := http.ListenAndServe(cfg.ServerAddr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

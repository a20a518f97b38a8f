//cmd/seeder/main.go
package main

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kplanner/kplanner-backend/internal/config"
	"github.com/kplanner/kplanner-backend/internal/db"
	"github.com/kplanner/kplanner-backend/internal/model"
	"github.com/kplanner/kplanner-backend/internal/repository"
	"github.com/kplanner/kplanner-backend/internal/service"
)

func boolPtr(b bool) *bool { return &b }

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

	owner := config.DemoUserID
	entityRepo := &repository.EntityRepository{DB: conn}
	keywordRepo := &repository.KeywordRepository{DB: conn}
	relationRepo := &repository.RelationRepository{DB: conn}

	entityService := &service.EntityService{Repo: entityRepo, Cfg: cfg, Log: logger}
	keywordService := &service.KeywordService{
		Keywords:     keywordRepo,
		Entities:     entityRepo,
		Projects:     &repository.ProjectRepository{DB: conn},
		RelationRepo: relationRepo,
		Relations: &service.RelationService{
			Relations: relationRepo,
			Keywords:  keywordRepo,
			Cfg:       cfg,
			Log:       logger,
		},
		Cfg: cfg,
		Log: logger,
	}

	company, err := entityService.Create(model.KindCompany, owner, "Demo Company", true, 0)
	if err != nil {
		logger.Fatal("failed to seed company", zap.Error(err))
	}
	campaign, err := entityService.Create(model.KindAdCampaign, owner, "Demo Campaign", true, company.Entity.ID)
	if err != nil {
		logger.Fatal("failed to seed campaign", zap.Error(err))
	}
	adGroup, err := entityService.Create(model.KindAdGroup, owner, "Demo Ad Group", true, campaign.Entity.ID)
	if err != nil {
		logger.Fatal("failed to seed ad group", zap.Error(err))
	}

	keywords := []string{
		"running shoes",
		"trail running shoes",
		"running shoes for women",
		"marathon training plan",
		"best running socks",
	}
	result, err := keywordService.BulkCreate(owner, keywords,
		service.TargetSet{
			CompanyIDs:    []int{company.Entity.ID},
			AdCampaignIDs: []int{campaign.Entity.ID},
			AdGroupIDs:    []int{adGroup.Entity.ID},
		},
		model.MatchTypes{Broad: boolPtr(true), Phrase: boolPtr(true)},
		model.OverrideFlags{},
		0,
	)
	if err != nil {
		logger.Fatal("failed to seed keywords", zap.Error(err))
	}

	logger.Info("database seeding completed",
		zap.String("owner", owner),
		zap.Int("keywords_created", result.Created),
		zap.Int("relations_created", result.RelationsCreated),
	)
}

package meet

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/core/storage"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/staging"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new meet import feature.
func NewFeature(db *gorm.DB, logger *zap.Logger, client storage.Client, bucket string,
	matcherCfg matcher.Config, importCfg ingest.Config) *Feature {
	svc := NewService(db, logger, client, bucket, matcherCfg, importCfg)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "meet"
}

// Register mounts the feature's routes.
func (f *Feature) Register(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Migrate creates every table the import pipeline uses.
func Migrate(db *gorm.DB) error {
	if err := models.Migrate(db); err != nil {
		return err
	}
	if err := staging.Migrate(db); err != nil {
		return err
	}
	return db.AutoMigrate(&phase.Artifact{})
}

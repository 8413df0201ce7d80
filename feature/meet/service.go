package meet

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/core/storage"
	"meet-importer/feature/meet/commit"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/models"
	"meet-importer/feature/meet/solve"
	"meet-importer/feature/meet/staging"
)

// Service ties the import pipeline together: parsing, the phase solvers and
// the commit orchestrator, all sharing one store.
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	artifacts *phase.Store
	staging   *staging.Store
	solver    *solve.Solver
	committer *commit.Orchestrator
	config    ingest.Config
}

// NewService creates a new meet import service. The storage client may be
// nil; artifact archiving is then disabled.
func NewService(db *gorm.DB, logger *zap.Logger, client storage.Client, bucket string,
	matcherCfg matcher.Config, importCfg ingest.Config) *Service {
	artifacts := phase.NewStore(db)
	stagingStore := staging.NewStore(db)
	return &Service{
		logger:    logger,
		db:        db,
		artifacts: artifacts,
		staging:   stagingStore,
		config:    importCfg,
		solver: &solve.Solver{
			DB:         db,
			Log:        logger,
			Matcher:    matcher.New(matcherCfg),
			Categories: models.NewCategoryService(db),
			Artifacts:  artifacts,
			Staging:    stagingStore,
			Config:     importCfg,
		},
		committer: &commit.Orchestrator{
			DB:        db,
			Log:       logger,
			Artifacts: artifacts,
			Staging:   stagingStore,
			Storage:   client,
			Bucket:    bucket,
			Config:    importCfg,
		},
	}
}

// ArtifactInfo is the envelope header of one produced artifact.
type ArtifactInfo struct {
	Phase          int        `json:"phase"`
	Generator      string     `json:"generator"`
	Version        int        `json:"version"`
	Checksum       string     `json:"checksum"`
	ParentChecksum string     `json:"parent_checksum,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
}

// ImportReport summarizes one parse-and-solve run.
type ImportReport struct {
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	StagedRows int64          `json:"staged_rows"`
	Artifacts  []ArtifactInfo `json:"artifacts"`
}

// StatusReport describes how far a document has progressed through the
// pipeline.
type StatusReport struct {
	Code          string `json:"code"`
	MissingPhases []int  `json:"missing_phases"`
	StagedRows    int64  `json:"staged_rows"`
	Committable   bool   `json:"committable"`
}

// Import parses a raw result document and runs the five resolution phases.
func (s *Service) Import(ctx context.Context, data []byte) (*ImportReport, error) {
	doc, err := ingest.Parse(data, s.config)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.solver.Run(ctx, doc)
	if err != nil {
		return nil, err
	}

	staged, err := s.staging.CountBySource(ctx, doc.Code)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Code: doc.Code, Name: doc.Name, StagedRows: staged}
	for _, a := range artifacts {
		report.Artifacts = append(report.Artifacts, artifactInfo(a))
	}
	return report, nil
}

func artifactInfo(a *phase.Artifact) ArtifactInfo {
	return ArtifactInfo{
		Phase:          a.Phase,
		Generator:      a.Generator,
		Version:        a.Version,
		Checksum:       a.Checksum,
		ParentChecksum: a.ParentChecksum,
		CreatedAt:      a.CreatedAt,
		ArchivedAt:     a.ArchivedAt,
	}
}

// Artifacts returns the envelope headers of the latest artifact per solved
// phase of a document.
func (s *Service) Artifacts(ctx context.Context, code string) ([]ArtifactInfo, error) {
	latest, err := s.artifacts.Latest(ctx, code)
	if err != nil {
		return nil, err
	}
	infos := make([]ArtifactInfo, 0, len(latest))
	for i := range latest {
		infos = append(infos, artifactInfo(&latest[i]))
	}
	return infos, nil
}

// Commit runs the final phase for a previously imported document.
func (s *Service) Commit(ctx context.Context, code string) (*commit.Summary, error) {
	return s.committer.Commit(ctx, code)
}

// Status reports the pipeline state of a document: which phase artifacts are
// still missing and how many staged rows wait for commit.
func (s *Service) Status(ctx context.Context, code string) (*StatusReport, error) {
	missing, err := s.artifacts.Missing(ctx, code,
		phase.PhaseVenue, phase.PhaseTeam, phase.PhaseSwimmer, phase.PhaseEvent, phase.PhaseResult)
	if err != nil {
		return nil, err
	}
	staged, err := s.staging.CountBySource(ctx, code)
	if err != nil {
		return nil, err
	}

	committable := true
	for _, p := range missing {
		if p != phase.PhaseResult {
			committable = false
		}
	}
	return &StatusReport{
		Code:          code,
		MissingPhases: missing,
		StagedRows:    staged,
		Committable:   committable,
	}, nil
}

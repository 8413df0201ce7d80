package commit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"meet-importer/core/logger"
	"meet-importer/core/phase"
	"meet-importer/core/storage"
	"meet-importer/feature/meet/ingest"
	"meet-importer/feature/meet/solve"
	"meet-importer/feature/meet/staging"
)

// Orchestrator runs phase 6: it consumes the phase 1-4 artifacts and the
// staged result rows and commits every unresolved entity in dependency order
// inside one transaction.
type Orchestrator struct {
	DB        *gorm.DB
	Log       *zap.Logger
	Artifacts *phase.Store
	Staging   *staging.Store
	// Storage receives the artifact archive after a successful commit;
	// nil disables archiving.
	Storage storage.Client
	Bucket  string
	Config  ingest.Config
}

// Summary reports what one commit did, per entity type.
type Summary struct {
	BatchID   string         `json:"batch_id"`
	SourceRef string         `json:"source_ref"`
	Created   map[string]int `json:"created"`
	Updated   map[string]int `json:"updated"`
	Skipped   map[string]int `json:"skipped"`
	// Retained counts staging rows left behind for manual linking.
	Retained int `json:"retained,omitempty"`
}

func newSummary(batchID, sourceRef string) *Summary {
	return &Summary{
		BatchID:   batchID,
		SourceRef: sourceRef,
		Created:   make(map[string]int),
		Updated:   make(map[string]int),
		Skipped:   make(map[string]int),
	}
}

func (s *Summary) created(entity string) { s.Created[entity]++ }
func (s *Summary) updated(entity string) { s.Updated[entity]++ }
func (s *Summary) skipped(entity string) { s.Skipped[entity]++ }

// PreconditionError reports a commit attempted before every prerequisite
// phase produced its artifact.
type PreconditionError struct {
	SourceRef string
	Missing   []int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("commit preconditions not met for %q: missing phase artifacts %v", e.SourceRef, e.Missing)
}

// Preconditions returns the prerequisite phases still missing an artifact
// for the source reference. It is checked before the transaction opens;
// an empty result clears the commit to run.
func (o *Orchestrator) Preconditions(ctx context.Context, sourceRef string) ([]int, error) {
	return o.Artifacts.Missing(ctx, sourceRef,
		phase.PhaseVenue, phase.PhaseTeam, phase.PhaseSwimmer, phase.PhaseEvent)
}

// Commit runs the full phase 6 flow for a document: precondition check,
// one atomic transaction committing entities in dependency order with an
// audit trail, then staging purge and artifact archive on success. Any
// validation failure rolls the whole transaction back.
func (o *Orchestrator) Commit(ctx context.Context, sourceRef string) (*Summary, error) {
	missing, err := o.Preconditions(ctx, sourceRef)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &PreconditionError{SourceRef: sourceRef, Missing: missing}
	}

	var venues solve.VenuePayload
	if _, err := o.Artifacts.Load(ctx, sourceRef, phase.PhaseVenue, &venues); err != nil {
		return nil, err
	}
	var teams solve.TeamPayload
	if _, err := o.Artifacts.Load(ctx, sourceRef, phase.PhaseTeam, &teams); err != nil {
		return nil, err
	}
	var swimmers solve.SwimmerPayload
	if _, err := o.Artifacts.Load(ctx, sourceRef, phase.PhaseSwimmer, &swimmers); err != nil {
		return nil, err
	}
	var events solve.EventPayload
	if _, err := o.Artifacts.Load(ctx, sourceRef, phase.PhaseEvent, &events); err != nil {
		return nil, err
	}

	rows, err := o.Staging.ListBySource(ctx, sourceRef)
	if err != nil {
		return nil, err
	}

	summary := newSummary(uuid.NewString(), sourceRef)
	run := &txRun{
		o:               o,
		sourceRef:       sourceRef,
		summary:         summary,
		venues:          &venues,
		teams:           &teams,
		swimmers:        &swimmers,
		events:          &events,
		cityIDs:         make(map[string]uint),
		poolIDs:         make(map[string]uint),
		sessionIDs:      make(map[int]uint),
		teamIDs:         make(map[string]uint),
		swimmerIDs:      make(map[string]uint),
		badgeIDs:        make(map[string]uint),
		eventTypeIDs:    make(map[string]uint),
		meetingEventIDs: make(map[string]uint),
	}

	err = o.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run.tx = tx
		run.audit = newAuditWriter(tx, summary.BatchID)

		if err := run.commitVenues(); err != nil {
			return err
		}
		if err := run.commitTeams(); err != nil {
			return err
		}
		if err := run.commitSwimmers(); err != nil {
			return err
		}
		if err := run.commitEvents(); err != nil {
			return err
		}
		return run.commitResults(rows)
	})
	if err != nil {
		return nil, err
	}
	summary.Retained = len(rows) - len(run.consumed)

	if err := o.Staging.Purge(ctx, run.consumed); err != nil {
		return nil, err
	}
	if o.Storage != nil {
		if err := o.Artifacts.Archive(ctx, o.Storage, o.Bucket, sourceRef); err != nil {
			return nil, err
		}
	}

	logger.WithSource(o.Log, sourceRef).Info("document committed",
		zap.String("batch", summary.BatchID),
		zap.Any("created", summary.Created),
		zap.Any("updated", summary.Updated),
		zap.Int("retained", summary.Retained))
	return summary, nil
}

// persistErr wraps a store failure in the validation error that aborts the
// transaction.
func persistErr(entity, key string, err error) error {
	return &phase.PersistenceValidationError{
		Entity:  entity,
		Key:     key,
		Message: "store rejected the record",
		Err:     err,
	}
}

package phase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meet-importer/core/storage"

	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

// ErrChecksumMismatch is returned when a loaded artifact payload does not
// match its stored checksum.
var ErrChecksumMismatch = fmt.Errorf("artifact payload checksum mismatch")

// ErrNotFound is returned when no artifact exists for a source/phase pair.
var ErrNotFound = fmt.Errorf("artifact not found")

// Artifact is the persisted form of a phase artifact: envelope columns plus
// the JSON payload. Artifacts are read-only after creation; re-generating a
// phase inserts a new version rather than mutating the previous one.
type Artifact struct {
	ID             uint       `gorm:"column:id;primaryKey;autoIncrement"`
	SourceRef      string     `gorm:"column:source_ref;size:128;uniqueIndex:idx_artifacts_ref_phase_version,priority:1"`
	Phase          int        `gorm:"column:phase;uniqueIndex:idx_artifacts_ref_phase_version,priority:2"`
	Version        int        `gorm:"column:version;uniqueIndex:idx_artifacts_ref_phase_version,priority:3"`
	Generator      string     `gorm:"column:generator;size:64"`
	SchemaVersion  string     `gorm:"column:schema_version;size:16"`
	ParentChecksum string     `gorm:"column:parent_checksum;size:64"`
	Checksum       string     `gorm:"column:checksum;size:64"`
	Payload        []byte     `gorm:"column:payload"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	ArchivedAt     *time.Time `gorm:"column:archived_at"`
}

// TableName overrides the table name.
func (Artifact) TableName() string {
	return "phase_artifacts"
}

// Envelope reconstructs the artifact envelope from the stored columns.
func (a *Artifact) Envelope() Envelope {
	return Envelope{
		Generator:      a.Generator,
		CreatedAt:      a.CreatedAt,
		SourceRef:      a.SourceRef,
		ParentChecksum: a.ParentChecksum,
		SchemaVersion:  a.SchemaVersion,
	}
}

// Store persists phase artifacts keyed by source reference.
type Store struct {
	db *gorm.DB
}

// NewStore creates an artifact store on the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save serializes the payload and inserts a new artifact version for
// (sourceRef, phaseNo). The single insert is the last step of a solve, so a
// failed solve never leaves a partial artifact behind.
func (s *Store) Save(ctx context.Context, sourceRef string, phaseNo int, generator, parentChecksum string, payload any) (*Artifact, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize phase %d payload: %w", phaseNo, err)
	}

	var lastVersion int
	err = s.db.WithContext(ctx).
		Model(&Artifact{}).
		Where("source_ref = ? AND phase = ?", sourceRef, phaseNo).
		Select("COALESCE(MAX(version), 0)").
		Scan(&lastVersion).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact version: %w", err)
	}

	artifact := &Artifact{
		SourceRef:      sourceRef,
		Phase:          phaseNo,
		Version:        lastVersion + 1,
		Generator:      generator,
		SchemaVersion:  SchemaVersion,
		ParentChecksum: parentChecksum,
		Checksum:       Checksum(raw),
		Payload:        raw,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(artifact).Error; err != nil {
		return nil, fmt.Errorf("failed to save phase %d artifact: %w", phaseNo, err)
	}
	return artifact, nil
}

// Load fetches the latest artifact version for (sourceRef, phaseNo),
// verifies its checksum and unmarshals the payload into out. Pass a nil out
// to fetch the envelope only.
func (s *Store) Load(ctx context.Context, sourceRef string, phaseNo int, out any) (*Artifact, error) {
	var artifact Artifact
	err := s.db.WithContext(ctx).
		Where("source_ref = ? AND phase = ?", sourceRef, phaseNo).
		Order("version DESC").
		First(&artifact).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("phase %d for %q: %w", phaseNo, sourceRef, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load phase %d artifact: %w", phaseNo, err)
	}

	if Checksum(artifact.Payload) != artifact.Checksum {
		return nil, fmt.Errorf("phase %d for %q: %w", phaseNo, sourceRef, ErrChecksumMismatch)
	}

	if out != nil {
		if err := json.Unmarshal(artifact.Payload, out); err != nil {
			return nil, fmt.Errorf("failed to decode phase %d payload: %w", phaseNo, err)
		}
	}
	return &artifact, nil
}

// Latest returns the newest artifact version of every phase solved for the
// source reference, ordered by phase. Payloads are included; callers wanting
// headers only should drop them.
func (s *Store) Latest(ctx context.Context, sourceRef string) ([]Artifact, error) {
	var artifacts []Artifact
	err := s.db.WithContext(ctx).
		Where("source_ref = ?", sourceRef).
		Order("phase, version DESC").
		Find(&artifacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts for %q: %w", sourceRef, err)
	}

	latest := artifacts[:0]
	seen := make(map[int]bool)
	for i := range artifacts {
		if seen[artifacts[i].Phase] {
			continue
		}
		seen[artifacts[i].Phase] = true
		latest = append(latest, artifacts[i])
	}
	return latest, nil
}

// Missing returns the subset of the given phases that have no artifact for
// the source reference, in ascending order. An empty result means all
// prerequisites are present.
func (s *Store) Missing(ctx context.Context, sourceRef string, phases ...int) ([]int, error) {
	var present []int
	err := s.db.WithContext(ctx).
		Model(&Artifact{}).
		Where("source_ref = ? AND phase IN ?", sourceRef, phases).
		Distinct("phase").
		Order("phase").
		Pluck("phase", &present).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact presence: %w", err)
	}

	have := make(map[int]struct{}, len(present))
	for _, p := range present {
		have[p] = struct{}{}
	}

	var missing []int
	for _, p := range phases {
		if _, ok := have[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// Archive pushes the latest version of every artifact for the source
// reference to object storage under archives/<sourceRef>/phase<N>.json and
// stamps the rows as archived. Called by the commit orchestrator after a
// successful transaction.
func (s *Store) Archive(ctx context.Context, client storage.Client, bucket, sourceRef string) error {
	var artifacts []Artifact
	err := s.db.WithContext(ctx).
		Where("source_ref = ?", sourceRef).
		Order("phase, version DESC").
		Find(&artifacts).Error
	if err != nil {
		return fmt.Errorf("failed to list artifacts for archive: %w", err)
	}

	archived := make(map[int]bool)
	now := time.Now().UTC()
	for i := range artifacts {
		a := &artifacts[i]
		// Only the latest version per phase is archived.
		if archived[a.Phase] {
			continue
		}
		archived[a.Phase] = true

		object := fmt.Sprintf("archives/%s/phase%d.json", sourceRef, a.Phase)
		_, err := client.PutObject(ctx, bucket, object,
			bytes.NewReader(a.Payload), int64(len(a.Payload)),
			minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			return fmt.Errorf("failed to archive phase %d artifact: %w", a.Phase, err)
		}

		err = s.db.WithContext(ctx).
			Model(&Artifact{}).
			Where("id = ?", a.ID).
			Update("archived_at", now).Error
		if err != nil {
			return fmt.Errorf("failed to stamp archived artifact: %w", err)
		}
	}
	return nil
}

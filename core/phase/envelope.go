package phase

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SchemaVersion is the current artifact payload schema version. Bump it when
// an artifact payload shape changes incompatibly.
const SchemaVersion = "1.0"

// Phase numbers of the resolution pipeline. Phase 6 produces no artifact;
// it consumes the previous ones.
const (
	PhaseVenue   = 1
	PhaseTeam    = 2
	PhaseSwimmer = 3
	PhaseEvent   = 4
	PhaseResult  = 5
	PhaseCommit  = 6
)

// Envelope is the metadata wrapper every phase artifact carries.
type Envelope struct {
	// Generator identifies the solver that produced the artifact.
	Generator string `json:"generator"`
	// CreatedAt is the artifact creation timestamp.
	CreatedAt time.Time `json:"created_at"`
	// SourceRef is the source document reference (meeting code).
	SourceRef string `json:"source_ref"`
	// ParentChecksum is the checksum of the prerequisite artifact this one
	// was derived from, empty for phase 1.
	ParentChecksum string `json:"parent_checksum,omitempty"`
	// SchemaVersion is the payload schema version.
	SchemaVersion string `json:"schema_version"`
}

// Checksum returns the hex SHA-256 digest of a serialized payload.
func Checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

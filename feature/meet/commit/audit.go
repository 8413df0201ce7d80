package commit

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"meet-importer/core/utils"
	"meet-importer/feature/meet/models"
)

// Audit operations.
const (
	opInsert = "insert"
	opUpdate = "update"
)

// auditWriter appends one audit row per committed insert or update, inside
// the commit transaction so the log rolls back with the data. The attribute
// snapshot carries everything needed to replay the change set elsewhere.
type auditWriter struct {
	tx      *gorm.DB
	batchID string
	seq     int
}

func newAuditWriter(tx *gorm.DB, batchID string) *auditWriter {
	return &auditWriter{tx: tx, batchID: batchID}
}

func (w *auditWriter) insert(entity, key string, attrs map[string]any) error {
	return w.record(opInsert, entity, key, attrs)
}

func (w *auditWriter) update(entity, key string, attrs map[string]any) error {
	return w.record(opUpdate, entity, key, attrs)
}

func (w *auditWriter) record(op, entity, key string, attrs map[string]any) error {
	for k, v := range attrs {
		attrs[k] = utils.BlankToNil(v)
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to serialize audit attributes: %w", err)
	}

	w.seq++
	entry := models.AuditLogEntry{
		BatchID:    w.batchID,
		Seq:        w.seq,
		Entity:     entity,
		NaturalKey: key,
		Operation:  op,
		Attributes: raw,
		CreatedAt:  time.Now().UTC(),
	}
	if err := w.tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

package staging

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockDB opens a GORM handle on a sqlmock connection with the MySQL
// dialector, matching the production driver.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestPurgeDeletesOnlyGivenIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `staging_rows` WHERE id IN \\(\\?,\\?,\\?\\)").
		WithArgs(3, 7, 9).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := store.Purge(context.Background(), []uint{3, 7, 9})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeWithoutIDsIssuesNothing(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db)

	err := store.Purge(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeBySourceDeletesTheDocument(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `staging_rows` WHERE source_ref = \\?").
		WithArgs("24RIC01").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	err := store.PurgeBySource(context.Background(), "24RIC01")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

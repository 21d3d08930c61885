package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*Tracker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS process_dedupe").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tracker, err := NewTracker(context.Background(), db)
	require.NoError(t, err)
	return tracker, mock
}

func TestKey(t *testing.T) {
	assert.Equal(t, "pics/2024/cat.jpg", Key("pics", "2024/cat.jpg"))
}

func TestNewTracker_TableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	_, err = NewTracker(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRecord(t *testing.T) {
	tracker, mock := newTracker(t)

	mock.ExpectQuery("INSERT INTO process_dedupe").
		WithArgs("pics/cat.jpg", "image_analysis", 1).
		WillReturnRows(sqlmock.NewRows([]string{"seen_count"}).AddRow(2))

	count, err := tracker.Record(context.Background(), "pics/cat.jpg", "image_analysis", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_Error(t *testing.T) {
	tracker, mock := newTracker(t)

	mock.ExpectQuery("INSERT INTO process_dedupe").WillReturnError(errors.New("conn refused"))

	_, err := tracker.Record(context.Background(), "pics/cat.jpg", "image_analysis", 1)
	assert.Error(t, err)
}

func TestGetSeenCount(t *testing.T) {
	tracker, mock := newTracker(t)

	mock.ExpectQuery("SELECT seen_count FROM process_dedupe").
		WithArgs("pics/cat.jpg").
		WillReturnRows(sqlmock.NewRows([]string{"seen_count"}).AddRow(3))
	mock.ExpectQuery("SELECT seen_count FROM process_dedupe").
		WithArgs("pics/new.jpg").
		WillReturnRows(sqlmock.NewRows([]string{"seen_count"}))

	count, err := tracker.GetSeenCount(context.Background(), "pics/cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = tracker.GetSeenCount(context.Background(), "pics/new.jpg")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

package dbosruntime

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://localhost/dbos"}
	cfg.WithDefaults()

	assert.Equal(t, DefaultQueueName, cfg.QueueName)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "image-analysis-pipeline", cfg.AppName)

	cfg = Config{QueueName: "q", Concurrency: 9, AppName: "w"}
	cfg.WithDefaults()
	assert.Equal(t, "q", cfg.QueueName)
	assert.Equal(t, 9, cfg.Concurrency)
	assert.Equal(t, "w", cfg.AppName)
}

func TestNewRuntime_RequiresDatabaseURL(t *testing.T) {
	_, err := NewRuntime(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DBOS_SYSTEM_DATABASE_URL")
}

func TestNewClient_RequiresDatabaseURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{QueueName: "images"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DBOS_SYSTEM_DATABASE_URL")
}

func TestQueryWorkflowStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"workflow_uuid", "status", "name", "created_at", "updated_at"}).
		AddRow("run-1", "SUCCESS", "executeWorkflowDBOS", int64(1000), int64(2000))
	mock.ExpectQuery("SELECT workflow_uuid, status, name").
		WithArgs("run-1").
		WillReturnRows(rows)

	info, err := queryWorkflowStatus(context.Background(), db, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", info.WorkflowUUID)
	assert.Equal(t, "SUCCESS", info.Status)
	assert.Equal(t, int64(2000), info.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWorkflowStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT workflow_uuid").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"workflow_uuid", "status", "name", "created_at", "updated_at"}))

	_, err = queryWorkflowStatus(context.Background(), db, "missing")
	assert.True(t, errors.Is(err, ErrWorkflowNotFound))
}

func TestQueryWorkflowStatus_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT workflow_uuid").WillReturnError(errors.New("conn reset"))

	_, err = queryWorkflowStatus(context.Background(), db, "run-2")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrWorkflowNotFound))
	assert.Contains(t, err.Error(), "conn reset")
}

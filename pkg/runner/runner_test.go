package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockEnqueuer) GetStatus(ctx context.Context, runID string) (*workflows.WorkflowStatus, error) {
	args := m.Called(ctx, runID)
	status, _ := args.Get(0).(*workflows.WorkflowStatus)
	return status, args.Error(1)
}

func TestConfig_RuntimeConfig(t *testing.T) {
	cfg := Config{
		DatabaseURL:        "postgres://localhost/dbos",
		AppName:            "uploader",
		QueueName:          "images",
		Concurrency:        2,
		ApplicationVersion: "v1",
	}

	rc := cfg.runtimeConfig()
	assert.Equal(t, "postgres://localhost/dbos", rc.DatabaseURL)
	assert.Equal(t, "uploader", rc.AppName)
	assert.Equal(t, "images", rc.QueueName)
	assert.Equal(t, 2, rc.Concurrency)
	assert.Equal(t, "v1", rc.ApplicationVersion)
}

func TestNewClient_RequiresDatabaseURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}

func TestClient_RunAnalysisEnqueues(t *testing.T) {
	ctx := context.Background()
	enq := &mockEnqueuer{}
	enq.On("RunAsync", ctx, pipeline.ProcessRequest{
		Bucket: "uploads",
		Name:   "cat.jpg",
		Job:    pipeline.JobImageAnalysis,
	}).Return("run-1", nil)

	client := &Client{runner: enq}
	runID, err := client.RunAnalysis(ctx, "uploads", "cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	enq.AssertExpectations(t)
}

func TestClient_RunAnalysisError(t *testing.T) {
	ctx := context.Background()
	enq := &mockEnqueuer{}
	enq.On("RunAsync", ctx, mock.Anything).Return("", errors.New("connection refused"))

	_, err := (&Client{runner: enq}).RunAnalysis(ctx, "uploads", "cat.jpg")
	assert.ErrorContains(t, err, "connection refused")
}

func TestClient_Status(t *testing.T) {
	ctx := context.Background()
	enq := &mockEnqueuer{}
	enq.On("GetStatus", ctx, "run-1").Return(&workflows.WorkflowStatus{RunID: "run-1", State: "pending"}, nil)

	status, err := (&Client{runner: enq}).Status(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", status.State)
}

func TestClient_ShutdownWithoutConnection(t *testing.T) {
	assert.NotPanics(t, func() { (&Client{}).Shutdown(0) })
}

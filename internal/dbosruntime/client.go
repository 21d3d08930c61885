package dbosruntime

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
)

// Client submits workflows to a queue served by separately running workers.
// It neither registers nor executes workflows.
type Client struct {
	client dbos.Client
	config Config
	db     *sql.DB
}

// NewClient connects an enqueue-only DBOS client to the system database
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DBOS_SYSTEM_DATABASE_URL is required")
	}

	cfg.WithDefaults()

	client, err := dbos.NewClient(ctx, dbos.ClientConfig{
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		client.Shutdown(time.Second)
		return nil, err
	}

	return &Client{
		client: client,
		config: cfg,
		db:     db,
	}, nil
}

// DBOS returns the underlying DBOS client
func (c *Client) DBOS() dbos.Client {
	return c.client
}

// QueueName returns the configured queue name
func (c *Client) QueueName() string {
	return c.config.QueueName
}

// ApplicationVersion returns the version enqueued workflows are tagged with.
// Empty means the DBOS default.
func (c *Client) ApplicationVersion() string {
	return c.config.ApplicationVersion
}

// GetWorkflowStatus retrieves the status of a workflow from the DBOS status table
func (c *Client) GetWorkflowStatus(ctx context.Context, workflowUUID string) (*WorkflowStatusInfo, error) {
	return queryWorkflowStatus(ctx, c.db, workflowUUID)
}

// Shutdown closes the DBOS client and the status connection
func (c *Client) Shutdown(timeout time.Duration) error {
	c.client.Shutdown(timeout)
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

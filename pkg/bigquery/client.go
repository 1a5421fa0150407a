// Package bigquery owns the analytics dataset connection and the tables the
// workers stream rows into.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errUnknownTable         = errors.New("bigquery table not registered")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the client writes to. Schema and
// PartitionField are only used when the table has to be created.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
}

// SpecFor infers the schema of row, a struct with bigquery tags.
func SpecFor(name string, row any, partitionField string) (TableSpec, error) {
	schema, err := bigquery.InferSchema(row)
	if err != nil {
		return TableSpec{}, fmt.Errorf("infer schema for %s: %w", name, err)
	}
	return TableSpec{Name: strings.TrimSpace(name), Schema: schema, PartitionField: partitionField}, nil
}

type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	tables  map[string]TableSpec
	create  bool
}

// NewClient connects to the configured dataset and checks that every table
// in specs exists, creating missing ones when cfg.CreateTables is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, specs []TableSpec, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables, err := indexSpecs(specs)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, projectID, credentials(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bq, dataset: bq.Dataset(datasetID), tables: tables, create: cfg.CreateTables}

	created, err := c.ensure(ctx, c.create)
	if err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dataset":        datasetID,
			"tables":         len(tables),
			"tables_created": created,
		}), "bigquery client ready")
	}
	return c, nil
}

func indexSpecs(specs []TableSpec) (map[string]TableSpec, error) {
	tables := make(map[string]TableSpec, len(specs))
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			continue
		}
		tables[spec.Name] = spec
	}
	if len(tables) == 0 {
		return nil, errTableNameRequired
	}
	return tables, nil
}

func credentials(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// ensure verifies the dataset and tables and reports how many tables it created.
func (c *Client) ensure(ctx context.Context, create bool) (int, error) {
	if c == nil || c.dataset == nil {
		return 0, errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return 0, fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}

	created := 0
	for name, spec := range c.tables {
		table := c.dataset.Table(name)
		_, err := table.Metadata(ctx)
		switch {
		case err == nil:
			continue
		case !isNotFound(err):
			return created, fmt.Errorf("checking table %q: %w", name, err)
		case !create || len(spec.Schema) == 0:
			return created, fmt.Errorf("table %q does not exist", name)
		}
		if err := table.Create(ctx, tableMetadata(spec)); err != nil {
			return created, fmt.Errorf("creating table %q: %w", name, err)
		}
		created++
	}
	return created, nil
}

func tableMetadata(spec TableSpec) *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Schema: spec.Schema}
	if spec.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: spec.PartitionField}
	}
	return meta
}

// InsertRows streams rows into a registered table.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(table)
	if name == "" {
		return errTableNameRequired
	}
	if _, ok := c.tables[name]; !ok {
		return fmt.Errorf("%w: %s", errUnknownTable, name)
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(name).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

package bigquery

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/stretchr/testify/require"
)

type sampleRow struct {
	EventID    string    `bigquery:"event_id"`
	ItemCount  int64     `bigquery:"item_count"`
	OccurredAt time.Time `bigquery:"occurred_at"`
}

func TestSpecForInfersSchema(t *testing.T) {
	spec, err := SpecFor(" order_events ", sampleRow{}, "occurred_at")
	require.NoError(t, err)
	require.Equal(t, "order_events", spec.Name)
	require.Len(t, spec.Schema, 3)
	require.Equal(t, "event_id", spec.Schema[0].Name)
	require.Equal(t, bigquery.TimestampFieldType, spec.Schema[2].Type)

	meta := tableMetadata(spec)
	require.NotNil(t, meta.TimePartitioning)
	require.Equal(t, "occurred_at", meta.TimePartitioning.Field)
}

func TestTableMetadataWithoutPartition(t *testing.T) {
	require.Nil(t, tableMetadata(TableSpec{Name: "t"}).TimePartitioning)
}

func TestIndexSpecsSkipsBlankNames(t *testing.T) {
	tables, err := indexSpecs([]TableSpec{{Name: " order_events "}, {Name: "  "}})
	require.NoError(t, err)
	require.Contains(t, tables, "order_events")
	require.Len(t, tables, 1)

	_, err = indexSpecs(nil)
	require.ErrorIs(t, err, errTableNameRequired)
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	specs := []TableSpec{{Name: "t"}}

	_, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "d"}, specs, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{}, specs, nil)
	require.ErrorIs(t, err, errDatasetRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "d"}, nil, nil)
	require.ErrorIs(t, err, errTableNameRequired)
}

func TestInsertRowsGuards(t *testing.T) {
	var missing *Client
	require.ErrorIs(t, missing.InsertRows(context.Background(), "order_events", []any{1}), errClientNotInitialized)

	c := &Client{client: &bigquery.Client{}, tables: map[string]TableSpec{"order_events": {Name: "order_events"}}}
	require.ErrorIs(t, c.InsertRows(context.Background(), " ", []any{1}), errTableNameRequired)
	require.ErrorIs(t, c.InsertRows(context.Background(), "refunds", []any{1}), errUnknownTable)
	require.NoError(t, c.InsertRows(context.Background(), "order_events", nil))
}

func TestCredentialsPreferInlineJSON(t *testing.T) {
	require.Len(t, credentials(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/creds"}), 1)
	require.Len(t, credentials(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}), 1)
	require.Empty(t, credentials(config.GCPConfig{}))
}

func TestIsNotFound(t *testing.T) {
	require.False(t, isNotFound(errors.New("boom")))
}

package report_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/health"
	"github.com/dbforensic/dbforensic/report"
)

func TestAssemble_RoundTripsToJSON(t *testing.T) {
	cat, err := catalog.NewBuilder(catalog.ProviderPostgres, "public").
		AddTable(catalog.Table{FQN: catalog.NewFQN("public", "orders")}).
		Build()
	require.NoError(t, err)

	g := depgraph.Build(
		[]depgraph.ObjectRef{{Kind: depgraph.KindTable, FQN: catalog.NewFQN("public", "orders")}},
		nil,
	)
	hb := health.Score(cat, nil)

	r := report.Assemble(cat, g, nil, hb, nil)
	assert.Equal(t, "postgres", r.CatalogSummary.Provider.String())
	assert.Equal(t, 1, r.CatalogSummary.TableCount)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", r.RunID.String())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"provider":"postgres"`)
	assert.Contains(t, string(data), `"default_schema":"public"`)
}

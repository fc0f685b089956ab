package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigString(t *testing.T) {
	cfg, err := ParseConfigString(`
target_schema: |
  dbo
  reporting
skip_tables: |
  dbo.tmp_import
fail_under: 70
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"dbo", "reporting"}, cfg.TargetSchemas)
	assert.Equal(t, []string{"dbo.tmp_import"}, cfg.SkipTables)
	assert.Equal(t, 70, cfg.FailUnder)
}

func TestParseConfigString_Empty(t *testing.T) {
	cfg, err := ParseConfigString("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestParseConfigString_UnknownField(t *testing.T) {
	_, err := ParseConfigString("bogus_field: true\n")
	assert.Error(t, err)
}

func TestMergeConfig_OverrideWins(t *testing.T) {
	base := Config{TargetSchemas: []string{"dbo"}, FailUnder: 50}
	override := Config{FailUnder: 80}

	merged := MergeConfig(base, override)
	assert.Equal(t, []string{"dbo"}, merged.TargetSchemas)
	assert.Equal(t, 80, merged.FailUnder)
}

func TestMergeConfig_OverrideSchemasReplacesBase(t *testing.T) {
	base := Config{TargetSchemas: []string{"dbo"}}
	override := Config{TargetSchemas: []string{"reporting"}}

	merged := MergeConfig(base, override)
	assert.Equal(t, []string{"reporting"}, merged.TargetSchemas)
}

func TestFilterSnapshot_DropsSkippedTablesAndOutOfSchema(t *testing.T) {
	snap := Snapshot{
		Tables: []RawTable{
			{Schema: "dbo", Name: "Orders"},
			{Schema: "dbo", Name: "tmp_import"},
			{Schema: "staging", Name: "Orders"},
		},
		Views: []RawView{
			{Schema: "dbo", Name: "OrderSummary"},
		},
	}
	cfg := Config{TargetSchemas: []string{"dbo"}, SkipTables: []string{"dbo.tmp_import"}}

	out := FilterSnapshot(snap, cfg)

	require.Len(t, out.Tables, 1)
	assert.Equal(t, "Orders", out.Tables[0].Name)
	require.Len(t, out.Views, 1)
}

package connector

import (
	"bytes"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is a small set of filtering and scoring knobs loaded from a
// YAML file, with CLI flags able to override whatever the file sets.
type Config struct {
	TargetSchemas []string
	SkipTables    []string
	SkipViews     []string
	FailUnder     int // 0 means unset; health/scan treat 0 as "no threshold"
}

// ParseConfig loads a Config from a YAML file (empty path returns the
// zero Config rather than erroring).
func ParseConfig(configFile string) (Config, error) {
	if configFile == "" {
		return Config{}, nil
	}
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return Config{}, err
	}
	return parseConfigBytes(buf)
}

// ParseConfigString loads a Config from an in-memory YAML document,
// split from ParseConfig so tests don't need a scratch file on disk.
func ParseConfigString(yamlString string) (Config, error) {
	if yamlString == "" {
		return Config{}, nil
	}
	return parseConfigBytes([]byte(yamlString))
}

func parseConfigBytes(buf []byte) (Config, error) {
	var raw struct {
		TargetSchema string `yaml:"target_schema"`
		SkipTables   string `yaml:"skip_tables"`
		SkipViews    string `yaml:"skip_views"`
		FailUnder    int    `yaml:"fail_under"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{FailUnder: raw.FailUnder}
	cfg.TargetSchemas = splitLines(raw.TargetSchema)
	cfg.SkipTables = splitLines(raw.SkipTables)
	cfg.SkipViews = splitLines(raw.SkipViews)
	return cfg, nil
}

func splitLines(s string) []string {
	s = strings.Trim(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// MergeConfig merges two configs, with override's non-zero fields
// taking precedence over base's (CLI flags override file config).
func MergeConfig(base, override Config) Config {
	result := base
	if override.TargetSchemas != nil {
		result.TargetSchemas = override.TargetSchemas
	}
	if override.SkipTables != nil {
		result.SkipTables = override.SkipTables
	}
	if override.SkipViews != nil {
		result.SkipViews = override.SkipViews
	}
	if override.FailUnder != 0 {
		result.FailUnder = override.FailUnder
	}
	return result
}

// FilterSnapshot drops tables/views the config excludes before the
// snapshot reaches BuildCatalog, so skip_tables/skip_views/target_schema
// behave like a target/skip table filter over a dump.
func FilterSnapshot(snap Snapshot, cfg Config) Snapshot {
	if len(cfg.TargetSchemas) == 0 && len(cfg.SkipTables) == 0 && len(cfg.SkipViews) == 0 {
		return snap
	}

	schemaOK := func(schema string) bool {
		if len(cfg.TargetSchemas) == 0 {
			return true
		}
		for _, s := range cfg.TargetSchemas {
			if strings.EqualFold(s, schema) {
				return true
			}
		}
		return false
	}
	nameExcluded := func(list []string, schema, name string) bool {
		full := schema + "." + name
		for _, entry := range list {
			if strings.EqualFold(entry, name) || strings.EqualFold(entry, full) {
				return true
			}
		}
		return false
	}

	out := Snapshot{Provider: snap.Provider, DefaultSchema: snap.DefaultSchema}
	for _, t := range snap.Tables {
		if schemaOK(t.Schema) && !nameExcluded(cfg.SkipTables, t.Schema, t.Name) {
			out.Tables = append(out.Tables, t)
		}
	}
	for _, v := range snap.Views {
		if schemaOK(v.Schema) && !nameExcluded(cfg.SkipViews, v.Schema, v.Name) {
			out.Views = append(out.Views, v)
		}
	}
	for _, r := range snap.Routines {
		if schemaOK(r.Schema) {
			out.Routines = append(out.Routines, r)
		}
	}
	return out
}

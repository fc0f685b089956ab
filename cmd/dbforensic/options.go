package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/connector"
	connmssql "github.com/dbforensic/dbforensic/connector/mssql"
	connpg "github.com/dbforensic/dbforensic/connector/postgres"
	"github.com/dbforensic/dbforensic/errs"
	"github.com/dbforensic/dbforensic/util"
)

// connOpts is the connection option group shared by every subcommand,
// the same -U/-W/-h/-p shape cmd/psqldef parses, generalized to cover
// both supported providers.
type connOpts struct {
	Provider string `long:"provider" description:"postgres or sqlserver" choice:"postgres" choice:"sqlserver" default:"postgres"`
	Host     string `short:"h" long:"host" description:"database host" default:"127.0.0.1"`
	Port     int    `short:"p" long:"port" description:"database port"`
	User     string `short:"U" long:"user" description:"database user"`
	Password string `short:"W" long:"password" description:"database password, overridden by $DBFORENSIC_PASSWORD"`
	Prompt   bool   `long:"password-prompt" description:"force a password prompt"`
	DBName   string `long:"dbname" description:"database name"`
	Schema   string `long:"schema" description:"default schema" default:"public"`
	Config   string `long:"config" description:"path to a YAML config file"`

	Format     string `long:"format" description:"console, json, or markdown (diff also accepts sql)" default:"console"`
	FailUnder  int    `long:"fail-under" description:"exit 4 if the health score is below this threshold"`
	DebugDump  bool   `long:"debug-dump" description:"pretty-print the assembled report to stderr"`
}

func (o *connOpts) resolvePassword() string {
	if o.Prompt {
		fmt.Fprint(os.Stderr, "Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err == nil {
			return string(pass)
		}
	}
	return o.Password
}

func (o *connOpts) loadConfig() (connector.Config, error) {
	fileCfg, err := connector.ParseConfig(o.Config)
	if err != nil {
		return connector.Config{}, err
	}
	override := connector.Config{FailUnder: o.FailUnder}
	return connector.MergeConfig(fileCfg, override), nil
}

// snapshot connects using the resolved provider and returns the raw,
// config-filtered Snapshot for BuildCatalog.
func (o *connOpts) snapshot() (connector.Snapshot, connector.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return connector.Snapshot{}, cfg, err
	}

	env, err := connector.LoadEnvConfig()
	if err != nil {
		return connector.Snapshot{}, cfg, err
	}
	host, port, user, password, sslmode := env.ApplyOverrides(o.Host, o.Port, o.User, o.resolvePassword(), "")

	var snap connector.Snapshot
	switch o.Provider {
	case "sqlserver":
		port := port
		if port == 0 {
			port = 1433
		}
		c, err := connmssql.Open(connmssql.Config{Host: host, Port: port, User: user, Password: password, DBName: o.DBName})
		if err != nil {
			return snap, cfg, &errs.ConnectionError{Provider: "sqlserver", Err: err}
		}
		defer c.Close()
		snap, err = c.Snapshot(o.Schema)
		if err != nil {
			return snap, cfg, &errs.ConnectionError{Provider: "sqlserver", Err: err}
		}
	default:
		port := port
		if port == 0 {
			port = 5432
		}
		c, err := connpg.Open(connpg.Config{Host: host, Port: port, User: user, Password: password, DBName: o.DBName, SSLMode: sslmode})
		if err != nil {
			return snap, cfg, &errs.ConnectionError{Provider: "postgres", Err: err}
		}
		defer c.Close()
		snap, err = c.Snapshot(o.Schema)
		if err != nil {
			return snap, cfg, &errs.ConnectionError{Provider: "postgres", Err: err}
		}
	}

	return connector.FilterSnapshot(snap, cfg), cfg, nil
}

func (o *connOpts) buildCatalog() (catalog.Catalog, []errs.ExtractorWarning, connector.Config, error) {
	snap, cfg, err := o.snapshot()
	if err != nil {
		return catalog.Catalog{}, nil, cfg, err
	}
	cat, warnings, err := connector.BuildCatalog(snap)
	if err != nil {
		object := "catalog"
		var integrity *catalog.IntegrityError
		if errors.As(err, &integrity) {
			object = integrity.Object.String()
		}
		return cat, warnings, cfg, &errs.CatalogIntegrityError{Object: object, Message: err.Error()}
	}
	return cat, warnings, cfg, nil
}

func init() {
	util.InitSlog()
}

// Package postgres implements the connector.Snapshot boundary for
// PostgreSQL, querying pg_catalog/information_schema the same read-only
// way a schema-diffing tool queries them before DDL generation — except
// nothing here ever issues DDL.
package postgres

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"

	"github.com/dbforensic/dbforensic/connector"
)

// Config is the subset of connection settings the postgres connector
// needs; everything else (schema filtering, fail-under) lives in
// connector.Config.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func buildDSN(c Config) string {
	host := fmt.Sprintf("%s:%d", c.Host, c.Port)
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "prefer"
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), host, c.DBName, sslmode)
}

// Connector reads a PostgreSQL database's catalog into a
// connector.Snapshot.
type Connector struct {
	db *sql.DB
}

// Open establishes a connection pool; it does not query anything until
// Snapshot is called.
func Open(c Config) (*Connector, error) {
	db, err := sql.Open("postgres", buildDSN(c))
	if err != nil {
		return nil, err
	}
	return &Connector{db: db}, nil
}

func (c *Connector) Close() error { return c.db.Close() }

// Snapshot reads every table, view and routine in all non-system
// schemas into a connector.Snapshot; defaultSchema is only recorded on
// the snapshot and does not narrow what is read.
func (c *Connector) Snapshot(defaultSchema string) (connector.Snapshot, error) {
	snap := connector.Snapshot{Provider: "postgres", DefaultSchema: defaultSchema}

	tableKeys, err := c.tableKeys()
	if err != nil {
		return snap, err
	}
	tables, err := connector.ConcurrentMap(tableKeys, 8, func(key schemaName) (connector.RawTable, error) {
		return c.rawTable(key.schema, key.name)
	})
	if err != nil {
		return snap, err
	}
	snap.Tables = tables

	views, err := c.rawViews()
	if err != nil {
		return snap, err
	}
	snap.Views = views

	routines, err := c.rawRoutines()
	if err != nil {
		return snap, err
	}
	snap.Routines = routines

	return snap, nil
}

type schemaName struct{ schema, name string }

func (c *Connector) tableKeys() ([]schemaName, error) {
	rows, err := c.db.Query(`
		select n.nspname, relname from pg_catalog.pg_class c
		inner join pg_catalog.pg_namespace n on c.relnamespace = n.oid
		where n.nspname not in ('information_schema', 'pg_catalog')
		and c.relkind in ('r', 'p')
		and not exists (select * from pg_catalog.pg_depend d where c.oid = d.objid and d.deptype = 'e')
		order by n.nspname asc, relname asc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schemaName
	for rows.Next() {
		var sn schemaName
		if err := rows.Scan(&sn.schema, &sn.name); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (c *Connector) rawTable(schema, name string) (connector.RawTable, error) {
	rt := connector.RawTable{Schema: schema, Name: name}

	cols, err := c.rawColumns(schema, name)
	if err != nil {
		return rt, err
	}
	rt.Columns = cols

	pk, err := c.primaryKey(schema, name)
	if err != nil {
		return rt, err
	}
	rt.PrimaryKey = pk

	fks, err := c.foreignKeys(schema, name)
	if err != nil {
		return rt, err
	}
	rt.ForeignKeys = fks

	indexes, err := c.indexes(schema, name)
	if err != nil {
		return rt, err
	}
	rt.Indexes = indexes

	var rowCount int64
	err = c.db.QueryRow(`select reltuples::bigint from pg_catalog.pg_class where oid = $1::regclass`,
		quotedRegclass(schema, name)).Scan(&rowCount)
	if err == nil && rowCount >= 0 {
		rt.RowCount = uint64(rowCount)
		rt.HasRowCount = true
	}

	return rt, nil
}

func quotedRegclass(schema, name string) string {
	return fmt.Sprintf("%q.%q", schema, name)
}

func (c *Connector) rawColumns(schema, name string) ([]connector.RawColumn, error) {
	rows, err := c.db.Query(`
		select column_name, ordinal_position, data_type, is_nullable, coalesce(column_default, ''),
		       coalesce(is_identity, 'NO'), coalesce(is_generated, 'NEVER'), coalesce(generation_expression, '')
		from information_schema.columns
		where table_schema = $1 and table_name = $2
		order by ordinal_position asc
	`, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connector.RawColumn
	for rows.Next() {
		var col connector.RawColumn
		var nullable, isIdentity, isGenerated string
		if err := rows.Scan(&col.Name, &col.Ordinal, &col.DataType, &nullable, &col.DefaultExpr, &isIdentity, &isGenerated, &col.ComputedExpr); err != nil {
			return nil, err
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		col.IsIdentity = strings.EqualFold(isIdentity, "YES")
		col.IsComputed = !strings.EqualFold(isGenerated, "NEVER")
		out = append(out, col)
	}
	return out, rows.Err()
}

func (c *Connector) primaryKey(schema, name string) ([]string, error) {
	rows, err := c.db.Query(`
		select a.attname
		from pg_index i
		join pg_attribute a on a.attrelid = i.indrelid and a.attnum = any(i.indkey)
		where i.indrelid = ($1 || '.' || $2)::regclass and i.indisprimary
		order by array_position(i.indkey, a.attnum)
	`, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func (c *Connector) foreignKeys(schema, name string) ([]connector.RawForeignKey, error) {
	rows, err := c.db.Query(`
		select con.conname,
		       array_agg(att.attname order by u.ord) as cols,
		       fn.nspname, fc.relname,
		       array_agg(fatt.attname order by u.ord) as fcols,
		       con.confdeltype, con.confupdtype
		from pg_constraint con
		join pg_class c on c.oid = con.conrelid
		join pg_namespace n on n.oid = c.relnamespace
		join pg_class fc on fc.oid = con.confrelid
		join pg_namespace fn on fn.oid = fc.relnamespace
		join unnest(con.conkey) with ordinality as u(attnum, ord) on true
		join pg_attribute att on att.attrelid = con.conrelid and att.attnum = u.attnum
		join pg_attribute fatt on fatt.attrelid = con.confrelid and fatt.attnum = con.confkey[u.ord]
		where con.contype = 'f' and n.nspname = $1 and c.relname = $2
		group by con.conname, fn.nspname, fc.relname, con.confdeltype, con.confupdtype
	`, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connector.RawForeignKey
	for rows.Next() {
		var fk connector.RawForeignKey
		var cols, fcols pqStringArray
		var onDelete, onUpdate string
		if err := rows.Scan(&fk.Name, &cols, &fk.ReferencedSchema, &fk.ReferencedTable, &fcols, &onDelete, &onUpdate); err != nil {
			return nil, err
		}
		fk.Columns = []string(cols)
		fk.ReferencedColumns = []string(fcols)
		fk.OnDelete = referentialAction(onDelete)
		fk.OnUpdate = referentialAction(onUpdate)
		out = append(out, fk)
	}
	return out, rows.Err()
}

func referentialAction(code string) string {
	switch code {
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	case "r":
		return "RESTRICT"
	default:
		return "NO ACTION"
	}
}

func (c *Connector) indexes(schema, name string) ([]connector.RawIndex, error) {
	rows, err := c.db.Query(`
		select i.relname, ix.indisunique, am.amname = 'btree' and ix.indisclustered,
		       array_agg(a.attname order by k.ord),
		       max(s.idx_scan), max(s.idx_tup_fetch)
		from pg_index ix
		join pg_class t on t.oid = ix.indrelid
		join pg_namespace n on n.oid = t.relnamespace
		join pg_class i on i.oid = ix.indexrelid
		join pg_am am on am.oid = i.relam
		join unnest(ix.indkey) with ordinality as k(attnum, ord) on true
		join pg_attribute a on a.attrelid = t.oid and a.attnum = k.attnum
		left join pg_stat_user_indexes s on s.indexrelid = i.oid
		where n.nspname = $1 and t.relname = $2
		group by i.relname, ix.indisunique, am.amname, ix.indisclustered
	`, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connector.RawIndex
	for rows.Next() {
		var ix connector.RawIndex
		var cols pqStringArray
		var scans, fetches sql.NullInt64
		if err := rows.Scan(&ix.Name, &ix.IsUnique, &ix.IsClustered, &cols, &scans, &fetches); err != nil {
			return nil, err
		}
		for _, col := range cols {
			ix.Columns = append(ix.Columns, connector.RawIndexColumn{Column: col, Direction: "asc"})
		}
		// pg_stat_user_indexes only carries a row once the index has been
		// touched since the last stats reset; idx_scan counts both seek-
		// and scan-shaped index lookups, so it's attributed to UsageScans
		// while idx_tup_fetch (rows actually fetched through the index)
		// stands in for UsageSeeks. A missing row (no grant, or a
		// never-used index pre-reset) leaves HasUsageStats false.
		if scans.Valid {
			ix.HasUsageStats = true
			ix.UsageScans = uint64(scans.Int64)
		}
		if fetches.Valid {
			ix.UsageSeeks = uint64(fetches.Int64)
		}
		out = append(out, ix)
	}
	return out, rows.Err()
}

func (c *Connector) rawViews() ([]connector.RawView, error) {
	rows, err := c.db.Query(`
		select n.nspname, c.relname, pg_get_viewdef(c.oid)
		from pg_catalog.pg_class c
		inner join pg_catalog.pg_namespace n on c.relnamespace = n.oid
		where n.nspname not in ('information_schema', 'pg_catalog') and c.relkind = 'v'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connector.RawView
	for rows.Next() {
		var v connector.RawView
		if err := rows.Scan(&v.Schema, &v.Name, &v.Body); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (c *Connector) rawRoutines() ([]connector.RawRoutine, error) {
	rows, err := c.db.Query(`
		select n.nspname, p.proname, p.prokind = 'f', pg_get_functiondef(p.oid)
		from pg_proc p
		join pg_namespace n on n.oid = p.pronamespace
		where n.nspname not in ('information_schema', 'pg_catalog')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connector.RawRoutine
	for rows.Next() {
		var r connector.RawRoutine
		if err := rows.Scan(&r.Schema, &r.Name, &r.IsFunction, &r.Body); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// pqStringArray scans a Postgres text[] column without pulling in the
// full array helper package, preferring plain database/sql scanning
// over a heavier ORM layer.
type pqStringArray []string

func (a *pqStringArray) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		*a = parsePGArray(string(v))
		return nil
	case string:
		*a = parsePGArray(v)
		return nil
	default:
		return fmt.Errorf("pqStringArray: unsupported scan type %T", src)
	}
}

func parsePGArray(s string) []string {
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.Trim(p, `"`)
	}
	return out
}

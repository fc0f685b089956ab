// Package mssql implements the connector.Snapshot boundary for SQL
// Server, querying sys.* catalog views the same read-only way a
// schema-diffing tool queries them before DDL generation.
package mssql

import (
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/dbforensic/dbforensic/connector"
)

// Config is the subset of connection settings the mssql connector
// needs.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func buildDSN(c Config) string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Connector reads a SQL Server database's catalog into a
// connector.Snapshot.
type Connector struct {
	db *sql.DB
}

// Open establishes a connection pool.
func Open(c Config) (*Connector, error) {
	db, err := sql.Open("sqlserver", buildDSN(c))
	if err != nil {
		return nil, err
	}
	return &Connector{db: db}, nil
}

func (c *Connector) Close() error { return c.db.Close() }

// Snapshot reads every table, view and routine into a
// connector.Snapshot.
func (c *Connector) Snapshot(defaultSchema string) (connector.Snapshot, error) {
	snap := connector.Snapshot{Provider: "sqlserver", DefaultSchema: defaultSchema}

	tableKeys, err := c.tableKeys()
	if err != nil {
		return snap, err
	}
	rawTables, err := connector.ConcurrentMap(tableKeys, 8, func(t schemaName) (connector.RawTable, error) {
		return c.rawTable(t.schema, t.name)
	})
	if err != nil {
		return snap, err
	}
	snap.Tables = rawTables

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
	rows, err := c.db.Query(`select schema_name(schema_id), name from sys.objects where type = 'U' order by schema_name(schema_id), name`)
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
	err = c.db.QueryRow(`
		select sum(p.rows) from sys.partitions p
		join sys.objects o on o.object_id = p.object_id
		where o.schema_id = schema_id(?) and o.name = ? and p.index_id in (0, 1)
	`, schema, name).Scan(&rowCount)
	if err == nil && rowCount >= 0 {
		rt.RowCount = uint64(rowCount)
		rt.HasRowCount = true
	}

	return rt, nil
}

func (c *Connector) rawColumns(schema, name string) ([]connector.RawColumn, error) {
	query := `
		select c.name, c.column_id, tp.name, c.max_length, c.precision, c.scale, c.is_nullable, c.is_identity,
		       isnull(object_definition(c.default_object_id), ''), cc.is_computed, isnull(cc.definition, '')
		from sys.columns c
		join sys.types tp on c.user_type_id = tp.user_type_id
		left join sys.computed_columns cc on cc.object_id = c.object_id and cc.column_id = c.column_id
		where c.object_id = object_id(quotename(?) + '.' + quotename(?))
		order by c.column_id
	`
	rows, err := c.db.Query(query, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connector.RawColumn
	for rows.Next() {
		var col connector.RawColumn
		var typeName string
		var maxLen, precision, scale int
		var isComputed sql.NullBool
		if err := rows.Scan(&col.Name, &col.Ordinal, &typeName, &maxLen, &precision, &scale, &col.Nullable, &col.IsIdentity, &col.DefaultExpr, &isComputed, &col.ComputedExpr); err != nil {
			return nil, err
		}
		col.DataType = renderType(typeName, maxLen, precision, scale)
		col.IsComputed = isComputed.Valid && isComputed.Bool
		out = append(out, col)
	}
	return out, rows.Err()
}

func renderType(name string, maxLen, precision, scale int) string {
	switch name {
	case "varchar", "nvarchar", "char", "nchar", "varbinary", "binary":
		if maxLen == -1 {
			return fmt.Sprintf("%s(max)", name)
		}
		if name == "nvarchar" || name == "nchar" {
			maxLen /= 2
		}
		return fmt.Sprintf("%s(%d)", name, maxLen)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", name, precision, scale)
	default:
		return name
	}
}

func (c *Connector) primaryKey(schema, name string) ([]string, error) {
	rows, err := c.db.Query(`
		select col.name
		from sys.indexes ix
		join sys.index_columns ic on ic.object_id = ix.object_id and ic.index_id = ix.index_id
		join sys.columns col on col.object_id = ic.object_id and col.column_id = ic.column_id
		where ix.object_id = object_id(quotename(?) + '.' + quotename(?)) and ix.is_primary_key = 1
		order by ic.key_ordinal
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
		select f.name, col.name, schema_name(ro.schema_id), ro.name, rcol.name,
		       f.delete_referential_action_desc, f.update_referential_action_desc
		from sys.foreign_keys f
		join sys.foreign_key_columns fc on f.object_id = fc.constraint_object_id
		join sys.columns col on col.object_id = fc.parent_object_id and col.column_id = fc.parent_column_id
		join sys.objects ro on ro.object_id = fc.referenced_object_id
		join sys.columns rcol on rcol.object_id = fc.referenced_object_id and rcol.column_id = fc.referenced_column_id
		where f.parent_object_id = object_id(quotename(?) + '.' + quotename(?))
		order by f.name, fc.constraint_column_id
	`, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*connector.RawForeignKey{}
	var order []string
	for rows.Next() {
		var fkName, col, refSchema, refTable, refCol, onDelete, onUpdate string
		if err := rows.Scan(&fkName, &col, &refSchema, &refTable, &refCol, &onDelete, &onUpdate); err != nil {
			return nil, err
		}
		fk, ok := byName[fkName]
		if !ok {
			fk = &connector.RawForeignKey{Name: fkName, ReferencedSchema: refSchema, ReferencedTable: refTable, OnDelete: onDelete, OnUpdate: onUpdate}
			byName[fkName] = fk
			order = append(order, fkName)
		}
		fk.Columns = append(fk.Columns, col)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]connector.RawForeignKey, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func (c *Connector) indexes(schema, name string) ([]connector.RawIndex, error) {
	rows, err := c.db.Query(`
		select ix.name, ix.is_unique, ix.type_desc = 'CLUSTERED', col.name, ic.is_descending_key, ic.is_included_column,
		       isnull(ix.filter_definition, '')
		from sys.indexes ix
		join sys.index_columns ic on ic.object_id = ix.object_id and ic.index_id = ix.index_id
		join sys.columns col on col.object_id = ic.object_id and col.column_id = ic.column_id
		where ix.object_id = object_id(quotename(?) + '.' + quotename(?)) and ix.is_primary_key = 0 and ix.name is not null
		order by ix.name, ic.key_ordinal
	`, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*connector.RawIndex{}
	var order []string
	for rows.Next() {
		var ixName, colName, filter string
		var isUnique, isClustered, isDescending, isIncluded bool
		if err := rows.Scan(&ixName, &isUnique, &isClustered, &colName, &isDescending, &isIncluded, &filter); err != nil {
			return nil, err
		}
		ix, ok := byName[ixName]
		if !ok {
			ix = &connector.RawIndex{Name: ixName, IsUnique: isUnique, IsClustered: isClustered, FilterPredicate: filter}
			byName[ixName] = ix
			order = append(order, ixName)
		}
		if isIncluded {
			ix.IncludedColumns = append(ix.IncludedColumns, colName)
			continue
		}
		dir := "asc"
		if isDescending {
			dir = "desc"
		}
		ix.Columns = append(ix.Columns, connector.RawIndexColumn{Column: colName, Direction: dir})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]connector.RawIndex, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out, nil
}

func (c *Connector) rawViews() ([]connector.RawView, error) {
	rows, err := c.db.Query(`
		select schema_name(v.schema_id), v.name, object_definition(v.object_id)
		from sys.views v
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
		select schema_name(o.schema_id), o.name, o.type in ('FN', 'IF', 'TF'), object_definition(o.object_id)
		from sys.objects o
		where o.type in ('P', 'FN', 'IF', 'TF')
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

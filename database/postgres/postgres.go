/*
Package postgres loads the CSV tables into PostgreSQL.

Tables are created if they do not exist and filled with COPY FROM STDIN,
all tables in a single transaction. A failed load leaves the database
unchanged.
*/
package postgres

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/omniscale/osmcsv/fields"
	"github.com/omniscale/osmcsv/logging"
	"github.com/omniscale/osmcsv/writer"
)

var log = logging.NewLogger("postgres")

const DefaultSchema = "public"

type Config struct {
	// ConnectionParams is a postgres:// URL or a list of key=value
	// parameters. A schema=name parameter overrides Schema.
	ConnectionParams string
	Schema           string
	// Truncate removes existing rows before the load.
	Truncate bool
}

type SQLError struct {
	query         string
	originalError error
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("SQL Error: %s in query %s", e.originalError.Error(), e.query)
}

func (e *SQLError) Unwrap() error {
	return e.originalError
}

type Loader struct {
	Db     *sql.DB
	Params string
	Schema string
	Config Config
}

// New connects to the database of conf.
func New(conf Config) (*Loader, error) {
	params, schema, err := connectionParams(conf)
	if err != nil {
		return nil, err
	}
	l := &Loader{Params: params, Schema: schema, Config: conf}
	if err := l.Open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) Open() error {
	var err error

	l.Db, err = sql.Open("postgres", l.Params)
	if err != nil {
		return err
	}
	// check that the connection actually works
	err = l.Db.Ping()
	if err != nil {
		return errors.Wrap(err, "connecting to database")
	}
	return nil
}

func (l *Loader) Close() error {
	return l.Db.Close()
}

// Load copies all tables from the CSV files in dir. It returns the number
// of loaded rows for each table.
func (l *Loader) Load(ctx context.Context, dir string, names writer.Names) (map[string]int64, error) {
	if err := l.createSchema(ctx); err != nil {
		return nil, err
	}

	tx, err := l.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer rollbackIfTx(&tx)

	rows := make(map[string]int64)
	for _, table := range names.Tables() {
		for _, query := range tableSQL(l.Schema, table, l.Config.Truncate) {
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return nil, &SQLError{query, err}
			}
		}

		step := log.StartStep(fmt.Sprintf("Loading %s into %s", table.File, table.Name))
		n, err := copyTable(ctx, tx, l.Schema, table, filepath.Join(dir, table.File))
		log.StopStep(step)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", table.Name)
		}
		rows[table.Name] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	tx = nil
	return rows, nil
}

func (l *Loader) createSchema(ctx context.Context) error {
	if l.Schema == DefaultSchema {
		return nil
	}
	query := createSchemaSQL(l.Schema)
	if _, err := l.Db.ExecContext(ctx, query); err != nil {
		return &SQLError{query, err}
	}
	return nil
}

func copyTable(ctx context.Context, tx *sql.Tx, schema string, table writer.Table, fname string) (int64, error) {
	f, err := os.Open(fname)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(schema, table.Name, table.Fields...))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(table.Fields)
	args := make([]interface{}, len(table.Fields))

	var n int64
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		for i := range record {
			args[i] = record[i]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, err
		}
		n++
	}
	// flush pending COPY data
	if _, err := stmt.ExecContext(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func rollbackIfTx(tx **sql.Tx) {
	if *tx != nil {
		if err := (*tx).Rollback(); err != nil {
			log.Errorf("rollback failed: %s", err)
		}
	}
}

func createSchemaSQL(schema string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(schema)
}

// tableSQL returns the statements that prepare table for COPY.
func tableSQL(schema string, table writer.Table, truncate bool) []string {
	name := pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table.Name)

	cols := make([]string, 0, len(table.Fields))
	for _, field := range table.Fields {
		cols = append(cols, pq.QuoteIdentifier(field)+" "+columnType(fields.Types[field]))
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(cols, ", ")),
	}
	if truncate {
		stmts = append(stmts, "TRUNCATE TABLE "+name)
	}
	return stmts
}

func columnType(t fields.Type) string {
	switch t {
	case fields.Int:
		return "BIGINT"
	case fields.Float:
		return "DOUBLE PRECISION"
	}
	return "TEXT"
}

// connectionParams converts conf.ConnectionParams into key=value
// parameters for lib/pq and extracts the schema.
func connectionParams(conf Config) (string, string, error) {
	params := conf.ConnectionParams
	schema := conf.Schema

	if strings.HasPrefix(params, "postgis://") {
		params = strings.Replace(params, "postgis", "postgres", 1)
	}
	if strings.HasPrefix(params, "postgres://") || strings.HasPrefix(params, "postgresql://") {
		u, err := url.Parse(params)
		if err != nil {
			return "", "", errors.Wrap(err, "parsing connection URL")
		}
		q := u.Query()
		if v := q.Get("schema"); v != "" {
			schema = v
		}
		q.Del("schema")
		u.RawQuery = q.Encode()

		params, err = pq.ParseURL(u.String())
		if err != nil {
			return "", "", errors.Wrap(err, "parsing connection URL")
		}
	} else if m := schemaParam.FindStringSubmatchIndex(params); m != nil {
		v, _ := paramValue(params[m[2]:m[3]], "schema")
		schema = v
		params = strings.TrimSpace(params[:m[0]] + params[m[1]:])
	}

	if schema == "" {
		schema = DefaultSchema
	}
	return disableDefaultSslOnLocalhost(params), schema, nil
}

// schemaParam matches a schema=value parameter with a plain or quoted value.
var schemaParam = regexp.MustCompile(`(?:^|\s+)(schema=(?:'(?:[^'\\]|\\.)*'|\S*))`)

func disableDefaultSslOnLocalhost(params string) string {
	isLocalHost := false
	for _, p := range strings.Fields(params) {
		if _, ok := paramValue(p, "sslmode"); ok {
			return params
		}
		if host, ok := paramValue(p, "host"); ok && (host == "localhost" || host == "127.0.0.1") {
			isLocalHost = true
		}
	}
	if !isLocalHost {
		return params
	}
	if _, ok := os.LookupEnv("PGSSLMODE"); ok {
		return params
	}

	// found localhost but explicit no sslmode, disable sslmode
	return params + " sslmode=disable"
}

// paramValue returns the value of a key=value parameter without quotes.
func paramValue(param, key string) (string, bool) {
	if !strings.HasPrefix(param, key+"=") {
		return "", false
	}
	v := strings.TrimPrefix(param, key+"=")
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		v = v[1 : len(v)-1]
	}
	return v, true
}

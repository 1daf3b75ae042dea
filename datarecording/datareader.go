package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// QueryParams narrows and orders the rows of a query.
type QueryParams struct {
	// Where is an SQL condition without the WHERE keyword. Use ? for the
	// values in Args.
	Where string
	Args  []any

	// OrderBy is an SQL ordering without the ORDER BY keywords.
	OrderBy string

	// Limit is the maximum number of rows, 0 for all. Offset is only used
	// with a limit.
	Limit  int
	Offset int
}

func (p QueryParams) build(selectExpr, table string, paged bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s", selectExpr, table)

	if p.Where != "" {
		b.WriteString(" WHERE " + p.Where)
	}

	if !paged {
		return b.String()
	}

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)

		if p.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", p.Offset)
		}
	}

	return b.String()
}

// DataReader reads the tables written by a DataRecorder back into structs.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table fill. A
	// table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables in name order.
	ListTables() []string

	// Query returns pointers to the structs filled from the matching rows,
	// and the number of matching rows ignoring Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	db     *sql.DB
	tables map[string]reflect.Type
}

// NewReader opens an SQLite database for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB reads from an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:     db,
		tables: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("table %s must map to a struct, not %s",
			tableName, t))
	}

	r.tables[tableName] = t
}

func (r *sqliteReader) ListTables() []string {
	names := maps.Keys(r.tables)
	slices.Sort(names)

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	t, ok := r.tables[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		params.build("COUNT(*)", tableName, false),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		params.build("*", tableName, true),
		params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanStructs(rows, t)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// scanStructs fills one struct per row. Columns are matched to fields by
// name, and columns without a field are skipped.
func scanStructs(rows *sql.Rows, t reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		ptr := reflect.New(t)
		targets := make([]any, len(columns))

		for i, col := range columns {
			if f := ptr.Elem().FieldByName(col); f.IsValid() {
				targets[i] = f.Addr().Interface()
				continue
			}

			targets[i] = new(any)
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// QueryAll maps the table to T and returns all its rows that match the
// parameters.
func QueryAll[T any](
	ctx context.Context,
	r DataReader,
	tableName string,
	params QueryParams,
) ([]T, error) {
	var sample T

	r.MapTable(tableName, sample)

	results, _, err := r.Query(ctx, tableName, params)
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(results))
	for _, res := range results {
		rows = append(rows, *res.(*T))
	}

	return rows, nil
}

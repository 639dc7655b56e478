package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, letting table
// operations run standalone or inside a caller's transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// TableGateway is the row-query/row-delta half of the Platform Gateway: the
// destination for status, error, center-mapping, and format tables alike.
type TableGateway interface {
	// Query returns every row of table matching filter (AND'd equality
	// conditions), plus a RowLocator per row.
	Query(ctx context.Context, table string, filter map[string]string) (TableSnapshot, error)

	// ApplyDelta appends, updates, and deletes rows of table in one
	// best-effort batch. A failure partway through is reported, not rolled
	// back; the caller reconverges on the next run.
	ApplyDelta(ctx context.Context, table string, delta Delta) error

	// CreateTable creates table with the given columns if it does not
	// already exist, all of type text, plus a generated locator.
	CreateTable(ctx context.Context, table string, columns []string) error

	// RenameTable renames an existing table in place, used by replace-db to
	// archive the table a format is being migrated away from.
	RenameTable(ctx context.Context, oldName, newName string) error
}

// PgTableGateway is a TableGateway backed by Postgres. Every destination
// table is expected to carry a `row_id bigserial` and `row_version integer`
// pair alongside its declared columns; RowLocator is built from those.
type PgTableGateway struct {
	db DBTX
}

// NewPgTableGateway wraps db (a *pgxpool.Pool or pgx.Tx) as a TableGateway.
func NewPgTableGateway(db DBTX) *PgTableGateway {
	return &PgTableGateway{db: db}
}

// NewPgTableGatewayPool is a convenience constructor from a connection pool.
func NewPgTableGatewayPool(pool *pgxpool.Pool) *PgTableGateway {
	return &PgTableGateway{db: pool}
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (g *PgTableGateway) Query(ctx context.Context, table string, filter map[string]string) (TableSnapshot, error) {
	wb := newWhereBuilder()
	keys := sortedKeys(filter)
	for _, k := range keys {
		wb.Add(k, filter[k])
	}
	where, args := wb.Build()

	query := fmt.Sprintf("SELECT row_id, row_version, * FROM %s%s ORDER BY row_id", quoteIdentifier(table), where)
	rows, err := g.db.Query(ctx, query, args...)
	if err != nil {
		return TableSnapshot{}, classifyPgErr(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	// columns[0], columns[1] are row_id, row_version; the "*" after them
	// repeats those two, which are skipped, leaving the caller's declared
	// schema.
	columns := make([]string, 0, len(fields)-2)
	valueIdx := make([]int, 0, len(fields)-2)
	for i, f := range fields[2:] {
		name := string(f.Name)
		if name == "row_id" || name == "row_version" {
			continue
		}
		columns = append(columns, name)
		valueIdx = append(valueIdx, i+2)
	}

	snapshot := TableSnapshot{Columns: columns}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return TableSnapshot{}, classifyPgErr(err)
		}
		rowID := fmt.Sprintf("%v", vals[0])
		rowVersion := fmt.Sprintf("%v", vals[1])

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = stringifyCell(vals[valueIdx[i]])
		}
		snapshot.Rows = append(snapshot.Rows, row)
		snapshot.Locators = append(snapshot.Locators, RowLocator{RowID: rowID, RowVersion: rowVersion})
	}
	if err := rows.Err(); err != nil {
		return TableSnapshot{}, classifyPgErr(err)
	}
	return snapshot, nil
}

func (g *PgTableGateway) ApplyDelta(ctx context.Context, table string, delta Delta) error {
	if delta.Empty() {
		return nil
	}

	for _, row := range delta.Appends {
		if err := g.insertRow(ctx, table, row); err != nil {
			return err
		}
	}
	for _, upd := range delta.Updates {
		if err := g.updateRow(ctx, table, upd); err != nil {
			return err
		}
	}
	for _, loc := range delta.Deletes {
		if err := g.deleteRow(ctx, table, loc); err != nil {
			return err
		}
	}
	return nil
}

func (g *PgTableGateway) insertRow(ctx context.Context, table string, row Row) error {
	cols := sortedKeys(row)
	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, row_version) VALUES (%s, 1)",
		quoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	_, err := g.db.Exec(ctx, query, args...)
	if err != nil {
		return classifyPgErr(err)
	}
	return nil
}

func (g *PgTableGateway) updateRow(ctx context.Context, table string, upd RowUpdate) error {
	cols := sortedKeys(upd.Row)
	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+2)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(c), i+1)
		args = append(args, upd.Row[c])
	}
	sets = append(sets, "row_version = row_version + 1")
	query := fmt.Sprintf("UPDATE %s SET %s WHERE row_id = $%d AND row_version = $%d",
		quoteIdentifier(table), strings.Join(sets, ", "), len(args)+1, len(args)+2)
	args = append(args, upd.Locator.RowID, upd.Locator.RowVersion)
	_, err := g.db.Exec(ctx, query, args...)
	if err != nil {
		return classifyPgErr(err)
	}
	return nil
}

func (g *PgTableGateway) deleteRow(ctx context.Context, table string, loc RowLocator) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE row_id = $1", quoteIdentifier(table))
	_, err := g.db.Exec(ctx, query, loc.RowID)
	if err != nil {
		return classifyPgErr(err)
	}
	return nil
}

func (g *PgTableGateway) CreateTable(ctx context.Context, table string, columns []string) error {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdentifier(c) + " text"
	}
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (row_id bigserial PRIMARY KEY, row_version integer NOT NULL DEFAULT 1, %s)",
		quoteIdentifier(table), strings.Join(cols, ", "))
	_, err := g.db.Exec(ctx, query)
	if err != nil {
		return classifyPgErr(err)
	}
	return nil
}

func (g *PgTableGateway) RenameTable(ctx context.Context, oldName, newName string) error {
	query := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdentifier(oldName), quoteIdentifier(newName))
	_, err := g.db.Exec(ctx, query)
	if err != nil {
		return classifyPgErr(err)
	}
	return nil
}

func stringifyCell(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func classifyPgErr(err error) error {
	if err == nil {
		return nil
	}
	if err == pgx.ErrNoRows {
		return err
	}
	// Connection-level failures are retryable; everything else (constraint
	// violations, bad SQL) is treated as fatal for the current center.
	if strings.Contains(err.Error(), "connection") || strings.Contains(err.Error(), "timeout") {
		return &errs.PlatformTransient{Err: err}
	}
	return &errs.PlatformFatal{Err: err}
}

// whereBuilder constructs parameterized equality WHERE clauses, modeled on
// the teacher's helpers.WhereBuilder but trimmed to the filter needs of
// status/error/center-mapping queries (center = ?, id = ?).
type whereBuilder struct {
	conditions []string
	args       []interface{}
	argIndex   int
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{argIndex: 1}
}

func (w *whereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	w.conditions = append(w.conditions, fmt.Sprintf("%s = $%d", quoteIdentifier(column), w.argIndex))
	w.args = append(w.args, value)
	w.argIndex++
}

func (w *whereBuilder) Build() (string, []interface{}) {
	if len(w.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(w.conditions, " AND "), w.args
}

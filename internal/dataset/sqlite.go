package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/large-farva/antpos/internal/registry"
)

// FromSQLite reads the tables from a database written by WriteSQLite. The
// database is opened read-only.
func FromSQLite(ctx context.Context, path string) (t registry.Tables, err error) {
	if _, err = os.Stat(path); err != nil {
		return
	}
	db, err := sql.Open("sqlite3", sqliteDSN(path, "mode=ro"))
	if err != nil {
		err = fmt.Errorf("opening read connection: %w", err)
		return
	}
	defer closeWithError(db, &err)

	if t.References, err = queryTable(ctx, db, registry.TableReferences, registry.ReferenceColumns, selectReferencesSQL, scanReference); err != nil {
		return
	}
	if t.PhaseCentres, err = queryTable(ctx, db, registry.TablePhaseCentres, registry.PhaseCentreColumns, selectPhaseCentresSQL, scanPhaseCentre); err != nil {
		return
	}
	if t.Antennas, err = queryTable(ctx, db, registry.TableAntennas, registry.AntennaColumns, selectAntennasSQL, scanAntenna); err != nil {
		return
	}
	t.HBARotations, err = queryTable(ctx, db, registry.TableHBARotations, registry.HBARotationColumns, selectHBARotationsSQL, scanHBARotation)
	return
}

// sqliteDSN builds a URI filename for path. SQLite decodes %HH escapes in the
// path, so characters that would start the query or fragment are escaped.
func sqliteDSN(path, query string) string {
	return "file:" + dsnPathEscaper.Replace(path) + "?" + query
}

var dsnPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

type rowScanner func(*sql.Rows) ([]string, error)

func queryTable(ctx context.Context, db *sql.DB, name string, header []string, query string, scan rowScanner) (t registry.Table, err error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		err = fmt.Errorf("querying %s: %w", name, err)
		return
	}
	defer closeWithError(rows, &err)

	t = registry.Table{Name: name, Header: slices.Clone(header)}
	for rows.Next() {
		var rec []string
		if rec, err = scan(rows); err != nil {
			err = fmt.Errorf("scanning %s: %w", name, err)
			return
		}
		t.Rows = append(t.Rows, rec)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating %s: %w", name, err)
	}
	return
}

func scanReference(rows *sql.Rows) ([]string, error) {
	var station, axes string
	var x, y, z float64
	if err := rows.Scan(&station, &x, &y, &z, &axes); err != nil {
		return nil, err
	}
	rec := []string{station, formatFloat(x), formatFloat(y), formatFloat(z)}
	if axes != "" {
		rec = append(rec, strings.Split(axes, ",")...)
	}
	return rec, nil
}

func scanPhaseCentre(rows *sql.Rows) ([]string, error) {
	var station, field string
	var x, y, z float64
	if err := rows.Scan(&station, &field, &x, &y, &z); err != nil {
		return nil, err
	}
	return []string{station, field, formatFloat(x), formatFloat(y), formatFloat(z)}, nil
}

func scanAntenna(rows *sql.Rows) ([]string, error) {
	var station, field, typ string
	var id int
	var x, y, z float64
	var lx, ly sql.NullFloat64
	if err := rows.Scan(&station, &field, &typ, &id, &x, &y, &z, &lx, &ly); err != nil {
		return nil, err
	}
	return []string{station, field, typ, strconv.Itoa(id), formatFloat(x), formatFloat(y), formatFloat(z), formatNull(lx), formatNull(ly)}, nil
}

func scanHBARotation(rows *sql.Rows) ([]string, error) {
	var station string
	var hba0 float64
	var hba1 sql.NullFloat64
	if err := rows.Scan(&station, &hba0, &hba1); err != nil {
		return nil, err
	}
	return []string{station, formatFloat(hba0), formatNull(hba1)}, nil
}

// WriteSQLite validates t and writes it to a new database at path,
// replacing any existing file only once the write has fully succeeded.
func WriteSQLite(ctx context.Context, path string, t registry.Tables) (err error) {
	if _, err = registry.New(t, registry.WithLocalTolerance(-1)); err != nil {
		return fmt.Errorf("validating tables: %w", err)
	}

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	tmp, err := os.CreateTemp(dir, "antpos-*.db.tmp")
	if err != nil {
		return
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err = writeDB(ctx, tmpName, t); err != nil {
		return
	}
	return os.Rename(tmpName, path)
}

func writeDB(ctx context.Context, path string, t registry.Tables) (err error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path, "_journal_mode=DELETE&_synchronous=FULL"))
	if err != nil {
		return fmt.Errorf("opening write connection: %w", err)
	}
	defer closeWithError(db, &err)

	if _, err = db.ExecContext(ctx, initSchemaSQL); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackWithError(tx, &err)
		}
	}()

	inserts := []struct {
		table registry.Table
		cols  []string
		query string
		conv  func([]string) ([]any, error)
	}{
		{t.References, registry.ReferenceColumns, insertReferenceSQL, plainArgs(1, 2, 3)},
		{t.PhaseCentres, registry.PhaseCentreColumns, insertPhaseCentreSQL, plainArgs(2, 3, 4)},
		{t.Antennas, registry.AntennaColumns, insertAntennaSQL, antennaArgs},
		{t.HBARotations, registry.HBARotationColumns, insertHBARotationSQL, hbaRotationArgs},
	}
	for _, in := range inserts {
		if err = insertTable(ctx, tx, in.table, in.cols, in.query, in.conv); err != nil {
			return
		}
	}
	return tx.Commit()
}

func insertTable(ctx context.Context, tx *sql.Tx, t registry.Table, cols []string, query string, conv func([]string) ([]any, error)) (err error) {
	if len(t.Header) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", t.Name, err)
	}
	defer closeWithError(stmt, &err)

	idx := headerIndex(t.Header)
	for i, rec := range t.Rows {
		ordered := make([]string, len(cols))
		for j, c := range cols {
			ordered[j] = field(rec, idx[c])
		}
		if c, ok := idx["axes"]; ok && c < len(rec) {
			ordered[len(ordered)-1] = strings.Join(trimTrailingBlanks(rec[c:]), ",")
		}
		var args []any
		if args, err = conv(ordered); err != nil {
			return fmt.Errorf("%s row %d: %w", t.Name, i+1, err)
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", t.Name, i+1, err)
		}
	}
	return nil
}

// plainArgs passes every column through, parsing the listed ones as floats.
func plainArgs(floatCols ...int) func([]string) ([]any, error) {
	return func(rec []string) ([]any, error) {
		args := make([]any, len(rec))
		for i, v := range rec {
			args[i] = v
		}
		for _, i := range floatCols {
			f, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, err
			}
			args[i] = f
		}
		return args, nil
	}
}

func antennaArgs(rec []string) ([]any, error) {
	args, err := plainArgs(4, 5, 6)(rec)
	if err != nil {
		return nil, err
	}
	if args[3], err = strconv.Atoi(rec[3]); err != nil {
		return nil, err
	}
	for _, i := range []int{7, 8} {
		if args[i], err = nullFloat(rec[i]); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func hbaRotationArgs(rec []string) ([]any, error) {
	args, err := plainArgs(1)(rec)
	if err != nil {
		return nil, err
	}
	args[2], err = nullFloat(rec[2])
	return args, err
}

func nullFloat(s string) (sql.NullFloat64, error) {
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatNull(f sql.NullFloat64) string {
	if !f.Valid {
		return ""
	}
	return formatFloat(f.Float64)
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func trimTrailingBlanks(rec []string) []string {
	out := make([]string, 0, len(rec))
	for _, v := range rec {
		out = append(out, strings.TrimSpace(v))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil {
		*err = cErr
	}
}

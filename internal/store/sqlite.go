package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/nvandessel/paramstudy/internal/study"
	"github.com/nvandessel/paramstudy/internal/value"
)

const metaTemplateKey = "set_name_template"

// SQLiteFormat writes a study as a SQLite database. Each write replaces the
// whole file.
type SQLiteFormat struct{}

func (SQLiteFormat) Name() string { return "sqlite" }
func (SQLiteFormat) Ext() string  { return ".db" }

func openStudyDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite works best with single writer
	db.SetMaxOpenConns(1)
	return db, nil
}

func (SQLiteFormat) WriteFile(path string, s *study.Study) (err error) {
	tmp := path + ".tmp"
	os.Remove(tmp)
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	db, err := openStudyDB(tmp)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := insertStudy(ctx, db, s); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func insertStudy(ctx context.Context, db *sql.DB, s *study.Study) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO study_meta (key, value) VALUES (?, ?)`,
		metaTemplateKey, s.Template().String()); err != nil {
		return fmt.Errorf("failed to insert study meta: %w", err)
	}

	names := s.Names()
	for j, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parameters (position, name) VALUES (?, ?)`, j, name); err != nil {
			return fmt.Errorf("failed to insert parameter %s: %w", name, err)
		}
	}

	valStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parameter_values (set_name, parameter, kind, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer valStmt.Close()

	for i, ps := range s.Sets() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parameter_sets (position, set_name, set_hash) VALUES (?, ?, ?)`,
			i, ps.Name, ps.Hash); err != nil {
			return fmt.Errorf("failed to insert set %s: %w", ps.Name, err)
		}
		for j, v := range ps.Values {
			if _, err := valStmt.ExecContext(ctx, ps.Name, names[j], v.Kind().String(), v.Repr()); err != nil {
				return fmt.Errorf("failed to insert value %s.%s: %w", ps.Name, names[j], err)
			}
		}
	}

	return tx.Commit()
}

func (SQLiteFormat) ReadFile(path string) (*study.Study, error) {
	// sql.Open would create a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read study database: %w", err)
	}
	db, err := openStudyDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx := context.Background()
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrNotStudy, err)
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("study schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		return nil, err
	}

	template := study.NewSetNameTemplate("")
	var tmpl string
	err = db.QueryRowContext(ctx, `SELECT value FROM study_meta WHERE key = ?`, metaTemplateKey).Scan(&tmpl)
	switch {
	case err == nil:
		template = study.NewSetNameTemplate(tmpl)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to read study meta: %w", err)
	}

	names, err := queryStrings(ctx, db, `SELECT name FROM parameters ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters: %w", err)
	}
	column := make(map[string]int, len(names))
	for j, n := range names {
		column[n] = j
	}

	rows, err := db.QueryContext(ctx, `SELECT set_name, set_hash FROM parameter_sets ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter sets: %w", err)
	}
	var sets []study.ParameterSet
	index := make(map[string]int)
	for rows.Next() {
		var ps study.ParameterSet
		if err := rows.Scan(&ps.Name, &ps.Hash); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan parameter set: %w", err)
		}
		ps.Values = make([]value.Value, len(names))
		index[ps.Name] = len(sets)
		sets = append(sets, ps)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parameter sets: %w", err)
	}

	vrows, err := db.QueryContext(ctx, `SELECT set_name, parameter, kind, value FROM parameter_values`)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter values: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var setName, param, kindName, repr string
		if err := vrows.Scan(&setName, &param, &kindName, &repr); err != nil {
			return nil, fmt.Errorf("failed to scan parameter value: %w", err)
		}
		kind, err := value.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("set %s parameter %s: %w", setName, param, err)
		}
		v, err := value.ParseRepr(kind, repr)
		if err != nil {
			return nil, fmt.Errorf("set %s parameter %s: %w", setName, param, err)
		}
		i, ok1 := index[setName]
		j, ok2 := column[param]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("orphan value %s.%s: %w", setName, param, study.ErrCorruptStudy)
		}
		sets[i].Values[j] = v
	}
	if err := vrows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parameter values: %w", err)
	}

	return study.FromSets(names, sets, template)
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

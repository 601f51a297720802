package database

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const migrationsDir = "migrations"

type migration struct {
	version string
	script  string
	noTx    bool
}

// RunMigrations applies the embedded SQL migrations in filename order. Each
// file is applied once and recorded in schema_migrations. A file containing
// the line "-- +no-transaction" is executed statement by statement outside a
// transaction.
func RunMigrations(ctx context.Context, dsn string, logger zerolog.Logger) error {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}
	// simple protocol runs multi-statement files as one Exec
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return fmt.Errorf("failed to connect for migrations: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range migrations {
		var exists bool
		if err := conn.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.version, err)
		}
		if exists {
			continue
		}
		if err := apply(ctx, conn, m); err != nil {
			return err
		}
		applied++
		logger.Info().Str("migration", m.version).Bool("transactional", !m.noTx).Msg("Applied migration")
	}

	logger.Debug().Int("applied", applied).Int("total", len(migrations)).Msg("Migrations up to date")
	return nil
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		contents, err := migrationsFS.ReadFile(path.Join(migrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		script := strings.TrimSpace(string(contents))
		out = append(out, migration{
			version: strings.TrimSuffix(entry.Name(), ".sql"),
			script:  script,
			noTx:    hasDirective(script, "-- +no-transaction"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func hasDirective(script, directive string) bool {
	for _, line := range strings.Split(script, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), directive) {
			return true
		}
	}
	return false
}

func apply(ctx context.Context, conn *pgx.Conn, m migration) error {
	record := `INSERT INTO schema_migrations (version) VALUES ($1)`

	if m.noTx {
		for _, stmt := range splitStatements(m.script) {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.version, err)
			}
		}
		if _, err := conn.Exec(ctx, record, m.version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
		return nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if m.script != "" {
		if _, err := tx.Exec(ctx, m.script); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.version, err)
		}
	}
	if _, err := tx.Exec(ctx, record, m.version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.version, err)
	}
	return nil
}

// splitStatements drops comment lines and splits on semicolons.
func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var statements []string
	for _, part := range strings.Split(b.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

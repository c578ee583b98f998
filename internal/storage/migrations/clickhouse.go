package migrations

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	chstore "equity-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the dsn's database if missing, applies all
// embedded SQL files and returns a connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string, logger *log.Logger) (*chstore.Conn, error) {
	if logger == nil {
		logger = log.Default()
	}

	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}
	if err := applyClickhouse(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn, logger *log.Logger) error {
	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}

	for _, m := range files {
		stmts, err := statements(m.sql)
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", m.name, err)
		}
		// The native protocol takes one statement per Exec
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
		logger.Printf("clickhouse migration applied: %s (%d statements)", m.name, len(stmts))
	}
	return nil
}

// statements splits a SQL script on semicolons that sit outside string literals
// and comments. Comments are dropped.
func statements(sql string) ([]string, error) {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		switch {
		case strings.HasPrefix(sql[i:], "--"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = len(sql)
				continue
			}
			i += end
			cur.WriteByte('\n')

		case strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated block comment at offset %d", i)
			}
			i += end + 3
			cur.WriteByte(' ')

		case sql[i] == '\'':
			start := i
			cur.WriteByte('\'')
			for i++; ; i++ {
				if i >= len(sql) {
					return nil, fmt.Errorf("unterminated string literal at offset %d", start)
				}
				cur.WriteByte(sql[i])
				if sql[i] == '\\' && i+1 < len(sql) {
					i++
					cur.WriteByte(sql[i])
					continue
				}
				if sql[i] == '\'' {
					if i+1 < len(sql) && sql[i+1] == '\'' {
						i++
						cur.WriteByte('\'')
						continue
					}
					break
				}
			}

		case sql[i] == ';':
			flush()

		default:
			cur.WriteByte(sql[i])
		}
	}
	flush()
	return out, nil
}

// databaseFromDSN returns the database path component; migrations refuse to run without one.
func databaseFromDSN(dsn string) (string, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	if opts.Auth.Database == "" {
		return "", fmt.Errorf("clickhouse dsn %q has no database", dsn)
	}
	return opts.Auth.Database, nil
}

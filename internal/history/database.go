// Package history records every run's verdicts in a SQL database so
// reruns can be compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// DefaultMySQLDatabase is used when DB_DATABASE is unset
const DefaultMySQLDatabase = "imgconform"

// MySQLDSNFromEnv builds a DSN from the DB_* variables, with local defaults.
// The .env file has already been loaded into the environment by config.Load.
func MySQLDSNFromEnv() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "3306"
	}
	user := os.Getenv("DB_USERNAME")
	if user == "" {
		user = "root"
	}
	name := os.Getenv("DB_DATABASE")
	if name == "" {
		name = DefaultMySQLDatabase
	}

	c := mysql.NewConfig()
	c.User = user
	c.Passwd = os.Getenv("DB_PASSWORD")
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, port)
	c.DBName = name
	return c.FormatDSN()
}

// openDB connects with driver, preparing what the driver needs first
func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite history needs a database path")
		}
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create history dir: %w", err)
			}
		}
	case DriverMySQL:
		if dsn == "" {
			dsn = MySQLDSNFromEnv()
		}
		if err := ensureMySQLDatabase(ctx, dsn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// ensureMySQLDatabase creates the DSN's database when the server lacks it
func ensureMySQLDatabase(ctx context.Context, dsn string) error {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("invalid mysql dsn: %w", err)
	}
	name := c.DBName
	if name == "" {
		return fmt.Errorf("mysql dsn names no database")
	}
	if !isValidDatabaseName(name) {
		return fmt.Errorf("invalid database name: %s", name)
	}

	// Connect to the server without selecting the database
	c.DBName = ""
	db, err := sql.Open(DriverMySQL, c.FormatDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer db.Close()

	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	if err := db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check database %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// isValidDatabaseName allows identifiers that are safe to quote with backticks
func isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

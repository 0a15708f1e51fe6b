// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to describe the condition and configuration
// database of the pixel detector.
//
// The connection parameters are read from the PXDDB_USER, PXDDB_PASS
// and PXDDB_ADDR environment variables, when set.
package conddb // import "github.com/go-lpc/pxd/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
)

const timeout = 5 * time.Second

var drvName = "mysql"

// DB exposes convenience methods to easily retrieve conditions data
// and configuration data from the PXD database.
type DB struct {
	db   *sql.DB
	name string // name of the PXD database
}

// Open opens a connection to the PXD database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(dbname string) string {
	cfg := mysql.NewConfig()
	cfg.User = getenv("PXDDB_USER", "pxd")
	cfg.Passwd = getenv("PXDDB_PASS", "")
	cfg.Net = "tcp"
	cfg.Addr = getenv("PXDDB_ADDR", "localhost:3306")
	cfg.DBName = dbname
	cfg.Timeout = timeout
	return cfg.FormatDSN()
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// Name returns the name of the PXD database.
func (db *DB) Name() string { return db.name }

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

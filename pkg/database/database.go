// Package database is the connection provider: it turns a db_url into an
// open, pinged handle on one of the supported stores.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/BartekS5/cleanetl/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	pingTimeout    = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// Handle is an open connection to the destination store. Exactly one of SQL
// and Mongo is set.
type Handle struct {
	Target Target
	SQL    *sql.DB
	Mongo  *mongo.Client

	dialect *Dialect
}

// Connect parses dbURL and connects eagerly: the store is pinged before the
// handle is returned, so an unreachable destination fails here with a
// *ConnectionConfigError.
func Connect(ctx context.Context, dbURL string) (*Handle, error) {
	target, err := ParseURL(dbURL)
	if err != nil {
		return nil, err
	}

	if target.Store == StoreMongo {
		client, err := ConnectMongo(ctx, target.DSN)
		if err != nil {
			return nil, configErr(dbURL, err)
		}
		return &Handle{Target: target, Mongo: client}, nil
	}

	dialect, ok := DialectFor(target.Store)
	if !ok {
		return nil, configErr(dbURL, fmt.Errorf("no SQL dialect for %s", target.Store))
	}
	db, err := ConnectSQL(ctx, target.Driver, target.DSN)
	if err != nil {
		return nil, configErr(dbURL, err)
	}
	if target.Store == StoreSQLite {
		// every new connection to :memory: is a fresh database
		db.SetMaxOpenConns(1)
	}
	logger.Infof("Connected to %s", dialect.Name)
	return &Handle{Target: target, SQL: db, dialect: dialect}, nil
}

// FromDB wraps an already open *sql.DB, e.g. a test double.
func FromDB(db *sql.DB, store Store) (*Handle, error) {
	dialect, ok := DialectFor(store)
	if !ok {
		return nil, fmt.Errorf("no SQL dialect for %s", store)
	}
	return &Handle{Target: Target{Store: store}, SQL: db, dialect: dialect}, nil
}

func (h *Handle) Dialect() *Dialect { return h.dialect }

func (h *Handle) IsDocumentStore() bool { return h.Mongo != nil }

func (h *Handle) Close(ctx context.Context) error {
	var errs []error
	if h.SQL != nil {
		errs = append(errs, h.SQL.Close())
	}
	if h.Mongo != nil {
		errs = append(errs, h.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}

func ConnectSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s database (ping failed): %w", driver, err)
	}
	return db, nil
}

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), pingTimeout)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	logger.Infof("Connected to MongoDB")
	return client, nil
}

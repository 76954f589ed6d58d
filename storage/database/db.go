package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/alumnihub/backend/core"
	appfs "github.com/alumnihub/backend/fs"
)

// MigrationsDir is the directory of the migrations inside the embedded filesystem.
const MigrationsDir = "migrations"

const (
	maxPingAttempts = 30
	pingBackoff     = 100 * time.Millisecond
)

// dsn builds a postgres URL for dbName, authenticating as the admin role when asked and configured.
func dsn(conf *core.Config, dbName string, admin bool) string {
	dbConf := conf.Database
	user := url.UserPassword(dbConf.User, dbConf.Password)
	if admin && dbConf.AdminUser != "" {
		user = url.UserPassword(dbConf.AdminUser, dbConf.AdminPassword)
	}

	q := url.Values{"timezone": {"utc"}, "sslmode": {"require"}}
	if dbConf.DisableTLS {
		q.Set("sslmode", "disable")
	}
	u := url.URL{Scheme: dbConf.Engine, User: user, Host: dbConf.Address(), Path: dbName, RawQuery: q.Encode()}
	return u.String()
}

func connect(ctx context.Context, conf *core.Config, dbName string, admin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, dsn(conf, dbName, admin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}
	if err = waitReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects to the application database once it accepts connections.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	return connect(ctx, conf, conf.Database.Name, false)
}

// waitReady pings db until it answers, backing off a little more after each failure.
func waitReady(ctx context.Context, db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= maxPingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempt) * pingBackoff):
		}
	}
	return errors.Wrapf(err, "database not ready after %d attempts", maxPingAttempts)
}

// provision runs create when lookup finds no row.
func provision(ctx context.Context, db *sqlx.DB, lookup, name, create string) error {
	var found bool
	err := db.GetContext(ctx, &found, lookup, name)
	if err == nil && found {
		return nil
	}
	if err != nil && errors.Cause(err) != sql.ErrNoRows {
		return errors.Wrapf(err, "looking up %s", name)
	}
	if _, err = db.ExecContext(ctx, create); err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}
	return nil
}

// CreateIfNotExist creates the application role (as the admin role) then the application
// database (as the application role).
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	dbConf := conf.Database

	if dbConf.User != "" {
		adminDB, err := connect(ctx, conf, "postgres", true)
		if err != nil {
			return err
		}
		defer func() { _ = adminDB.Close() }()

		err = provision(ctx, adminDB,
			"SELECT true FROM pg_roles WHERE rolname = $1", dbConf.User,
			"CREATE USER "+pq.QuoteIdentifier(dbConf.User)+" CREATEDB ENCRYPTED PASSWORD "+pq.QuoteLiteral(dbConf.Password),
		)
		if err != nil {
			return errors.Wrap(err, "provisioning app role")
		}
	}

	db, err := connect(ctx, conf, "postgres", false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	err = provision(ctx, db,
		"SELECT true FROM pg_database WHERE datname = $1", dbConf.Name,
		"CREATE DATABASE "+pq.QuoteIdentifier(dbConf.Name),
	)
	return errors.Wrap(err, "provisioning app database")
}

// SetUpGoose points goose at the embedded migrations.
func SetUpGoose(dialect string) error {
	goose.SetBaseFS(appfs.FS)
	return goose.SetDialect(dialect)
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if err := SetUpGoose(conf.Database.Engine); err != nil {
		return errors.Wrap(err, "setting up goose")
	}
	return errors.Wrap(goose.UpContext(ctx, db.DB, MigrationsDir), "migrating database")
}

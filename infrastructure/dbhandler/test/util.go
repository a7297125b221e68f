package test

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	containerName     = "postgres"
	containerVersion  = "15-alpine"
	containerAutoKill = 120 * time.Second
	containerMaxWait  = 60 * time.Second

	port     = 5432
	user     = "localtest"
	password = "localpassword"
	dbname   = "testdb"
)

const (
	postgresUserEnv     = "POSTGRES_USER=" + user
	postgresPasswordEnv = "POSTGRES_PASSWORD=" + password
	postgresDbEnv       = "POSTGRES_DB=" + dbname
)

// Setup connects to docker and starts a postgres container for one test
// binary. An error means docker is not usable here; tests needing postgres
// should skip with it.
func Setup() (db *sql.DB, closeFunc func(), err error) {
	closeFunc = func() {}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "connecting to docker")
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, closeFunc, errors.Wrap(err, "pinging docker")
	}
	pool.MaxWait = containerMaxWait

	return StartPostgresDB(pool)
}

// StartPostgresDB starts a Docker container using the postgres image and returns a postgres client for testing purposes.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, closeFunc func(), err error) {
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: containerName,
		Tag:        containerVersion,
		Env: []string{
			postgresUserEnv,
			postgresPasswordEnv,
			postgresDbEnv,
		},
	}, func(config *docker.HostConfig) {
		// stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "failed to start resource")
	}

	closeFunc = func() {
		if db != nil {
			_ = db.Close()
		}
		if err := pool.Purge(resource); err != nil {
			logrus.StandardLogger().WithField("type", "dbhandler/test").WithError(err).Warn("🟡 purging postgres container")
		}
	}

	hostAndPort := resource.GetHostPort(fmt.Sprintf("%d/tcp", port))
	databaseUrl := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, hostAndPort, dbname)

	// Expire never returns an error.
	_ = resource.Expire(uint(containerAutoKill.Seconds()))

	err = pool.Retry(func() error {
		db, err = sql.Open("postgres", databaseUrl)
		if err != nil {
			return err
		}
		return db.Ping()
	})
	if err != nil {
		closeFunc()
		return nil, func() {}, errors.Wrap(err, "timed out waiting for postgres container to become available")
	}

	return db, closeFunc, nil
}

// ResetSchema drops every table so each test starts from an empty database.
func ResetSchema(db *sql.DB) error {
	_, err := db.Exec(`drop schema public cascade; create schema public`)
	return errors.Wrap(err, "resetting schema")
}

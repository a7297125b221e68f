package cmd

import (
	"database/sql"
	"errors"
	"time"

	"ethpool/domain"
	"ethpool/infrastructure/boltdb"
	"ethpool/infrastructure/dbhandler"
	"ethpool/interface/exporter"
	"ethpool/interface/repository"
	"ethpool/usecase"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

func defaultDependencyInject() {
	var err error
	log := logrus.StandardLogger().WithField("type", "cmd/dependency")

	exporter.Init()

	switch domain.GetStore() {
	case domain.StorePostgres:
		dbPool, err = sql.Open("postgres", domain.GetDbUri())
		if err != nil {
			log.WithError(err).Fatal("⛔️ unable to open database")
		}
		dbPool.SetMaxOpenConns(20)
		dbPool.SetMaxIdleConns(5)
		dbPool.SetConnMaxIdleTime(1 * time.Minute)
		dbPool.SetConnMaxLifetime(4 * time.Hour)

		dbHandler := dbhandler.DBHandler{DB: dbPool}
		if err = repository.Migrate(dbHandler); err != nil {
			log.WithError(err).Fatal("⛔️ unable to migrate database schema")
		}
		ledger = repository.NewPostgresLedger(dbHandler)

	default:
		db, err := boltdb.Open(domain.GetBoltPath())
		if errors.Is(err, bbolt.ErrTimeout) {
			log.WithError(err).Fatalf("⛔️ ledger file %v is locked by another process; while 'serve' runs, send writes to its HTTP API", domain.GetBoltPath())
		}
		if err != nil {
			log.WithError(err).Fatal("⛔️ unable to open ledger file")
		}
		ledger = repository.NewBoltLedger(db)
	}

	payoutInteractor = usecase.NewPayoutInteractor(ledger)
	teamInteractor = usecase.NewTeamInteractor(ledger)
	auditInteractor = usecase.NewAuditInteractor(ledger)
	poolInteractor = usecase.NewPoolInteractor(ledger, teamInteractor, payoutInteractor, usecase.NewLogEmitter())
}

func closeDependencies() {
	if ledger != nil {
		if err := ledger.Close(); err != nil {
			logrus.WithError(err).Warn("🟡 closing ledger")
		}
		ledger = nil
	}
	if dbPool != nil {
		_ = dbPool.Close()
		dbPool = nil
	}
}

var dbPool *sql.DB
var ledger repository.Ledger
var poolInteractor *usecase.PoolInteractor
var teamInteractor *usecase.TeamInteractor
var auditInteractor *usecase.AuditInteractor
var payoutInteractor *usecase.PayoutInteractor

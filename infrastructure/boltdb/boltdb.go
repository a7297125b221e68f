package boltdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	BucketPool     = []byte("pool")
	BucketAccounts = []byte("accounts")
	BucketTeam     = []byte("team")
	BucketPayouts  = []byte("payouts")
	BucketMemos    = []byte("memos")
)

// LockTimeout bounds the wait for the file lock held by another process.
const LockTimeout = 5 * time.Second

// Open opens or creates the bbolt database at dbPath together with every
// bucket the ledger uses.
func Open(dbPath string) (*bbolt.DB, error) {
	return OpenWithTimeout(dbPath, LockTimeout)
}

// OpenWithTimeout is Open with a custom lock timeout. A file locked past the
// timeout fails with bbolt.ErrTimeout.
func OpenWithTimeout(dbPath string, timeout time.Duration) (*bbolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("boltdb: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("boltdb: open %v: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{BucketPool, BucketAccounts, BucketTeam, BucketPayouts, BucketMemos} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltdb: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

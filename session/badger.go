package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const keyPrefix = "session:"

// lockRetry bounds how long an operation waits for another process to
// release the database directory.
const (
	lockRetryInterval = 25 * time.Millisecond
	lockRetryTimeout  = 2 * time.Second
)

// BadgerStorage implements Storage using BadgerDB for durable storage.
//
// An on-disk database is opened for the length of a single Load, Save or
// Clear and closed again, so the directory lock is never held between
// operations and several cinerec processes can share one session.
type BadgerStorage struct {
	dir    string
	logger zerolog.Logger

	// mem is the long-lived in-memory database when dir is empty
	mem *badger.DB
}

// OpenBadgerStorage returns storage backed by a BadgerDB at dir. An empty
// dir opens an in-memory database that lives until Close.
func OpenBadgerStorage(dir string, logger zerolog.Logger) (*BadgerStorage, error) {
	s := &BadgerStorage{
		dir:    dir,
		logger: logger.With().Str("component", "badger").Logger(),
	}
	if dir == "" {
		db, err := badger.Open(s.options())
		if err != nil {
			return nil, fmt.Errorf("open session storage: %w", err)
		}
		s.mem = db
	}
	return s, nil
}

func (s *BadgerStorage) options() badger.Options {
	opts := badger.DefaultOptions(s.dir).WithLogger(badgerLogger{logger: s.logger})
	if s.dir == "" {
		opts = opts.WithInMemory(true)
	}
	return opts
}

// withDB runs fn against an open database. On-disk databases are opened for
// the call only; a lock held by another process is retried until ctx ends
// or lockRetryTimeout passes.
func (s *BadgerStorage) withDB(ctx context.Context, fn func(db *badger.DB) error) error {
	if s.mem != nil {
		return fn(s.mem)
	}

	deadline := time.Now().Add(lockRetryTimeout)
	for {
		db, err := badger.Open(s.options())
		if err == nil {
			ferr := fn(db)
			if cerr := db.Close(); cerr != nil && ferr == nil {
				ferr = fmt.Errorf("close session storage: %w", cerr)
			}
			return ferr
		}
		if !isLockError(err) || time.Now().After(deadline) {
			return fmt.Errorf("open session storage: %w", err)
		}

		s.logger.Debug().Err(err).Msg("Session storage locked, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// isLockError reports whether err is badger refusing the directory lock
func isLockError(err error) bool {
	return strings.Contains(err.Error(), "Cannot acquire directory lock")
}

// Load implements Storage
func (s *BadgerStorage) Load(ctx context.Context) (Record, error) {
	var rec Record
	err := s.withDB(ctx, func(db *badger.DB) error {
		return db.View(func(txn *badger.Txn) error {
			token, err := getValue(txn, TokenKey)
			if err != nil {
				return err
			}
			user, err := getValue(txn, UserKey)
			if err != nil {
				return err
			}
			rec = Record{Token: string(token), User: user}
			return nil
		})
	})
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	return rec, nil
}

// Save implements Storage
func (s *BadgerStorage) Save(ctx context.Context, rec Record) error {
	return s.withDB(ctx, func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			if err := txn.Set([]byte(keyPrefix+TokenKey), []byte(rec.Token)); err != nil {
				return fmt.Errorf("set token: %w", err)
			}
			if err := txn.Set([]byte(keyPrefix+UserKey), rec.User); err != nil {
				return fmt.Errorf("set user: %w", err)
			}
			return nil
		})
	})
}

// Clear implements Storage
func (s *BadgerStorage) Clear(ctx context.Context) error {
	return s.withDB(ctx, func(db *badger.DB) error {
		return db.Update(func(txn *badger.Txn) error {
			for _, key := range []string{TokenKey, UserKey} {
				if err := txn.Delete([]byte(keyPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("delete %s: %w", key, err)
				}
			}
			return nil
		})
	})
}

// Close implements Storage. It only releases the in-memory database; on-disk
// storage holds nothing open between operations.
func (s *BadgerStorage) Close() error {
	if s.mem == nil {
		return nil
	}
	return s.mem.Close()
}

func getValue(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(keyPrefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

// badgerLogger routes badger's internal logging through zerolog
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}

// Package store keeps daemon state that should survive a restart in a
// badger database: the transposition table snapshot and finished games.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
)

var (
	ttPrefix   = []byte("tt/")
	gamePrefix = []byte("game/")
)

// ErrNotFound is returned for unknown game ids.
var ErrNotFound = errors.New("not found")

type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's own log lines; nil silences them.
	Logger *slog.Logger
}

func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type Store struct {
	db *badger.DB
}

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTable replaces the stored snapshot with the valid entries of tt and
// returns how many were written.
func (s *Store) SaveTable(tt *engine.TranspositionTable) (int, error) {
	if err := s.db.DropPrefix(ttPrefix); err != nil {
		return 0, fmt.Errorf("drop old snapshot: %w", err)
	}
	entries := tt.Snapshot()
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		if err := wb.Set(entryKey(e), encodeEntry(e)); err != nil {
			return 0, fmt.Errorf("write entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush snapshot: %w", err)
	}
	return len(entries), nil
}

// LoadTable stores the snapshot into tt through its normal replacement
// policy and returns the table's entry count afterwards.
func (s *Store) LoadTable(tt *engine.TranspositionTable) (int, error) {
	var entries []engine.TTEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 256, Prefix: ttPrefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			err := item.Value(func(val []byte) error {
				e, err := decodeEntry(key, val)
				if err != nil {
					return err
				}
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	return tt.Load(entries), nil
}

func (s *Store) SaveGame(id string, record []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(append([]byte(nil), gamePrefix...), id...), record)
	})
}

func (s *Store) Game(id string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append(append([]byte(nil), gamePrefix...), id...))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

// GameIDs lists the stored game ids in key order.
func (s *Store) GameIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: gamePrefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(gamePrefix):]))
		}
		return nil
	})
	return ids, err
}

const entryValueSize = 4 + 4 + 1 + 2 + 2 + 4 + 4 + 4

func entryKey(e engine.TTEntry) []byte {
	key := make([]byte, len(ttPrefix)+16)
	n := copy(key, ttPrefix)
	binary.BigEndian.PutUint64(key[n:], e.Key)
	binary.BigEndian.PutUint64(key[n+8:], e.Signature)
	return key
}

func encodeEntry(e engine.TTEntry) []byte {
	buf := make([]byte, entryValueSize)
	binary.BigEndian.PutUint32(buf[0:], uint32(int32(e.Depth)))
	binary.BigEndian.PutUint32(buf[4:], uint32(e.Score))
	buf[8] = byte(e.Flag)
	binary.BigEndian.PutUint16(buf[9:], uint16(int16(e.BestMove.X)))
	binary.BigEndian.PutUint16(buf[11:], uint16(int16(e.BestMove.Y)))
	binary.BigEndian.PutUint32(buf[13:], e.Hits)
	binary.BigEndian.PutUint32(buf[17:], e.GenWritten)
	binary.BigEndian.PutUint32(buf[21:], e.GenLastUsed)
	return buf
}

func decodeEntry(key, val []byte) (engine.TTEntry, error) {
	if len(key) != len(ttPrefix)+16 || len(val) != entryValueSize {
		return engine.TTEntry{}, fmt.Errorf("malformed entry %x", key)
	}
	k := key[len(ttPrefix):]
	return engine.TTEntry{
		Key:         binary.BigEndian.Uint64(k),
		Signature:   binary.BigEndian.Uint64(k[8:]),
		Depth:       int(int32(binary.BigEndian.Uint32(val[0:]))),
		Score:       int32(binary.BigEndian.Uint32(val[4:])),
		Flag:        engine.TTFlag(val[8]),
		BestMove:    engine.Move{X: int(int16(binary.BigEndian.Uint16(val[9:]))), Y: int(int16(binary.BigEndian.Uint16(val[11:])))},
		Hits:        binary.BigEndian.Uint32(val[13:]),
		GenWritten:  binary.BigEndian.Uint32(val[17:]),
		GenLastUsed: binary.BigEndian.Uint32(val[21:]),
		Valid:       true,
	}, nil
}

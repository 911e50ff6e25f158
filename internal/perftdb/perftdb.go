// Package perftdb persists verified perft divides so that regression runs
// can compare the engine against known counts without recomputing them.
package perftdb

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/engine"
)

const keyPrefix = "perft/"

// Source records who produced a count.
type Source string

const (
	SourceEngine    Source = "engine"
	SourceReference Source = "reference"
)

// Entry is the leaf count below one root move, keyed by its UCI string.
type Entry struct {
	Move  string `json:"move"`
	Nodes uint64 `json:"nodes"`
}

// Record is a stored perft divide.
type Record struct {
	FEN      string        `json:"fen"`
	Depth    int           `json:"depth"`
	Total    uint64        `json:"total"`
	Divide   []Entry       `json:"divide"`
	Source   Source        `json:"source"`
	Elapsed  time.Duration `json:"elapsed"`
	Recorded time.Time     `json:"recorded"`
}

// Counts returns the divide as a move to count map.
func (r *Record) Counts() map[string]uint64 {
	m := make(map[string]uint64, len(r.Divide))
	for _, e := range r.Divide {
		m[e.Move] = e.Nodes
	}
	return m
}

// FromResult converts an engine perft result.
func FromResult(fen string, res engine.PerftResult) *Record {
	rec := &Record{
		FEN:      NormalizeFEN(fen),
		Depth:    res.Depth,
		Total:    res.Total,
		Divide:   make([]Entry, len(res.Divide)),
		Source:   SourceEngine,
		Elapsed:  res.Elapsed,
		Recorded: time.Now(),
	}
	for i, d := range res.Divide {
		rec.Divide[i] = Entry{Move: d.Move.String(), Nodes: d.Nodes}
	}
	return rec
}

// NormalizeFEN keeps the placement, side, castling and en passant fields.
// The move clocks do not affect perft counts.
func NormalizeFEN(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func recordKey(fen string, depth int) []byte {
	return []byte(fmt.Sprintf("%s%s/%02d", keyPrefix, NormalizeFEN(fen), depth))
}

// Store wraps BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens the store in dir, or in DefaultDir when dir is empty.
func Open(dir string) (*Store, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "perftdb: open")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores rec, replacing any record for the same position and depth.
func (s *Store) Put(rec *Record) error {
	if rec == nil {
		return errors.New("perftdb: nil record")
	}
	rec.FEN = NormalizeFEN(rec.FEN)
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "perftdb: encode")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.FEN, rec.Depth), data)
	})
}

// Get loads the record for fen at depth. A missing record is not an error:
// ok is false.
func (s *Store) Get(fen string, depth int) (rec *Record, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(fen, depth))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &Record{}
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "perftdb: get %s depth %d", fen, depth)
	}
	return rec, rec != nil, nil
}

// Depths lists the stored depths for fen in ascending order.
func (s *Store) Depths(fen string) ([]int, error) {
	prefix := []byte(keyPrefix + NormalizeFEN(fen) + "/")
	var depths []int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var d int
			suffix := string(it.Item().Key()[len(prefix):])
			if _, err := fmt.Sscanf(suffix, "%d", &d); err != nil {
				return errors.Wrapf(err, "bad key %q", it.Item().Key())
			}
			depths = append(depths, d)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "perftdb: list depths")
	}
	return depths, nil
}

// Delete removes the record for fen at depth.
func (s *Store) Delete(fen string, depth int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(fen, depth))
	})
}

// Package memdb is an in-process, path-addressed tree database. It implements
// the write surface pathmut drives (set, update, remove and an optimistic
// transaction loop) plus reads, and is used as the reference backend in tests
// and by treectl.
package memdb

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/unkn0wn-root/pathmut"
	"github.com/unkn0wn-root/pathmut/tree"
)

const defaultMaxRetries = 25

var (
	ErrPermissionDenied = errors.New("memdb: permission denied")
	ErrMaxRetries       = errors.New("memdb: transaction exceeded max retries")
	ErrOverlappingPaths = errors.New("memdb: update paths overlap")
)

// Op names a write operation for Rules and errors.
type Op string

const (
	OpSet         Op = "set"
	OpUpdate      Op = "update"
	OpRemove      Op = "remove"
	OpTransaction Op = "transaction"
)

// Rules decides whether op may write at path. Returning an error rejects the
// write; the error is wrapped in *Error.
type Rules func(op Op, path string) error

// DenyPrefix rejects every write at or below prefix with ErrPermissionDenied.
func DenyPrefix(prefix string) Rules {
	prefix = tree.Clean(prefix)
	return func(_ Op, p string) error {
		if tree.Contains(prefix, p) {
			return ErrPermissionDenied
		}
		return nil
	}
}

// Error describes a rejected write.
type Error struct {
	Op   Op
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("memdb: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Options struct {
	Rules      Rules          // nil => allow all
	MaxRetries int            // transaction attempts; 0 => 25
	Logger     pathmut.Logger // nil => NopLogger
}

// DB holds one tree. All methods are safe for concurrent use.
type DB struct {
	mu   sync.RWMutex
	root any

	rules      Rules
	maxRetries int
	log        pathmut.Logger

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func New(opts Options) *DB {
	db := &DB{
		rules:      opts.Rules,
		maxRetries: opts.MaxRetries,
		log:        opts.Logger,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
	if db.maxRetries <= 0 {
		db.maxRetries = defaultMaxRetries
	}
	if db.log == nil {
		db.log = pathmut.NopLogger{}
	}
	return db
}

// Ref returns a reference to p. The path is not validated until a write.
func (db *DB) Ref(p string) *Ref {
	return &Ref{db: db, path: tree.Clean(p)}
}

// Load replaces the whole tree with the JSON document read from r.
// Priorities in export format are kept.
func (db *DB) Load(r io.Reader) error {
	var raw any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("memdb: load: %w", err)
	}
	n, err := tree.Normalize(raw)
	if err != nil {
		return fmt.Errorf("memdb: load: %w", err)
	}
	db.mu.Lock()
	db.root = n
	db.mu.Unlock()
	return nil
}

// Export writes the whole tree as indented JSON, priorities included.
func (db *DB) Export(w io.Writer) error {
	db.mu.RLock()
	root := db.root
	db.mu.RUnlock()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}

func (db *DB) check(ctx context.Context, op Op, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tree.ValidatePath(p); err != nil {
		return &Error{Op: op, Path: p, Err: err}
	}
	if db.rules != nil {
		if err := db.rules(op, p); err != nil {
			return &Error{Op: op, Path: p, Err: err}
		}
	}
	return nil
}

func (db *DB) lookup(p string) any {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return tree.Lookup(db.root, tree.Split(p))
}

func (db *DB) replace(p string, n any) {
	db.mu.Lock()
	db.root = tree.Replace(db.root, tree.Split(p), n)
	db.mu.Unlock()
}

func (db *DB) newID() string {
	db.idMu.Lock()
	defer db.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), db.entropy).String()
}

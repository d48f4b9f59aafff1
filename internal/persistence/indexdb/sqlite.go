package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelsort.ai/internal/sim/routing"
	"voxelsort.ai/internal/sim/tuning"
)

var ErrClosed = errors.New("index closed")

// SQLiteIndex is a queryable secondary index of route events. Writes are
// queued and applied by a single writer goroutine in batched transactions;
// the JSONL route logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// sendMu orders sends on ch against its close.
	sendMu sync.RWMutex
	closed bool

	dropped atomic.Uint64
	written atomic.Uint64
}

type reqKind int

const (
	reqRoute reqKind = iota + 1
	reqSync
)

type req struct {
	kind  reqKind
	event routing.Event
	done  chan struct{}
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	WrittenTotal  uint64 `json:"written_total"`
	DropTotal     uint64 `json:"drop_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			tick INTEGER NOT NULL,
			at TEXT NOT NULL,
			space TEXT NOT NULL,
			origin TEXT NOT NULL,
			receiver TEXT NOT NULL,
			item TEXT NOT NULL,
			requested INTEGER NOT NULL,
			moved INTEGER NOT NULL,
			shortfall INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_origin_tick ON routes(origin, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_receiver_tick ON routes(receiver, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_kind ON routes(kind);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		close(s.ch)
		s.sendMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record queues an event. It never blocks the tick: events are dropped when
// the writer falls behind.
func (s *SQLiteIndex) Record(ev routing.Event) {
	if s == nil {
		return
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{kind: reqRoute, event: ev}:
	default:
		s.dropped.Add(1)
	}
}

// Sync waits until every event queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil {
		return ErrClosed
	}
	done := make(chan struct{})
	if err := s.enqueueSync(ctx, done); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) enqueueSync(ctx context.Context, done chan struct{}) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.ch <- req{kind: reqSync, done: done}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		WrittenTotal:  s.written.Load(),
		DropTotal:     s.dropped.Load(),
	}
}

// UpsertTuning stores the tuning values the server actually applies.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	_, err = s.db.Exec(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		"tuning", hex.EncodeToString(sum[:]), string(b), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteIndex) TuningDigest(ctx context.Context) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM configs WHERE name='tuning'`).Scan(&digest)
	return digest, err
}

type RouteRow struct {
	ID        string
	Kind      string
	Tick      uint64
	Origin    string
	Receiver  string
	Item      string
	Requested int
	Moved     int
	Shortfall int
}

// RoutesFrom returns the most recent route events of one collector, newest first.
func (s *SQLiteIndex) RoutesFrom(ctx context.Context, origin string, limit int) ([]RouteRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,kind,tick,origin,receiver,item,requested,moved,shortfall
		 FROM routes WHERE origin=? ORDER BY tick DESC, id LIMIT ?`, origin, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RouteRow
	for rows.Next() {
		var r RouteRow
		var tick int64
		if err := rows.Scan(&r.ID, &r.Kind, &tick, &r.Origin, &r.Receiver, &r.Item, &r.Requested, &r.Moved, &r.Shortfall); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

type ShortfallTotal struct {
	Origin string
	Item   string
	Events int
	Units  int
}

// ShortfallTotals aggregates SHORTFALL events per collector and item, worst first.
func (s *SQLiteIndex) ShortfallTotals(ctx context.Context) ([]ShortfallTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT origin,item,COUNT(*),SUM(shortfall) FROM routes
		 WHERE kind=? GROUP BY origin,item ORDER BY SUM(shortfall) DESC, origin, item`,
		string(routing.EventShortfall))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShortfallTotal
	for rows.Next() {
		var t ShortfallTotal
		if err := rows.Scan(&t.Origin, &t.Item, &t.Events, &t.Units); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRoute, _ := s.db.Prepare(`INSERT OR REPLACE INTO routes(id,kind,tick,at,space,origin,receiver,item,requested,moved,shortfall,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertRoute != nil {
			_ = insertRoute.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		pending       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err == nil {
			s.written.Add(uint64(pending))
		}
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.dropped.Add(uint64(pending))
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		switch r.kind {
		case reqSync:
			commit()
			close(r.done)
			continue
		case reqRoute:
			begin()
			if tx == nil || insertRoute == nil {
				s.dropped.Add(1)
				continue
			}
			ev := r.event
			raw, _ := json.Marshal(ev)
			if _, err := tx.Stmt(insertRoute).Exec(
				ev.ID,
				string(ev.Kind),
				int64(ev.Tick),
				ev.Time.UTC().Format(time.RFC3339Nano),
				ev.Space,
				ev.Origin,
				ev.Receiver,
				ev.Item,
				ev.Requested,
				ev.Moved,
				ev.Shortfall,
				string(raw),
			); err != nil {
				s.dropped.Add(1)
				rollback()
				continue
			}
			opCount++
			pending++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

package tracklog

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DefaultBuffer = 1024
	batchSize     = 128
	flushInterval = 250 * time.Millisecond
)

type entry struct {
	track int
	p     track.Point
	at    time.Time
}

// Log persists every accepted track point to sqlite. It implements track.Sink.
type Log struct {
	db      *sql.DB
	ch      chan entry
	dropped atomic.Int64
	written atomic.Int64
}

var _ track.Sink = (*Log)(nil)

// Open creates the points table if needed. buffer bounds how many points may wait for Run.
func Open(path string, buffer int) (*Log, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open")
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS points (
			track INTEGER NOT NULL,
			x DOUBLE NOT NULL,
			y DOUBLE NOT NULL,
			recorded_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS points_track ON points (track, recorded_at);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create table")
	}
	return &Log{db: db, ch: make(chan entry, buffer)}, nil
}

// Record queues a point without blocking. Points that do not fit are dropped and counted.
func (l *Log) Record(id int, p track.Point) {
	select {
	case l.ch <- entry{track: id, p: p, at: time.Now()}:
	default:
		l.dropped.Add(1)
	}
}

func (l *Log) Dropped() int64 { return l.dropped.Load() }

func (l *Log) Written() int64 { return l.written.Load() }

// Run writes queued points in batches until ctx is done, then drains what is left.
func (l *Log) Run(ctx context.Context) error {
	log := logger.Entry(ctx).WithField("component", "tracklog")
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]entry, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// writes outlive ctx so the drain can finish
		if err := l.insert(context.Background(), batch); err != nil {
			log.WithError(err).WithField("points", len(batch)).Error("insert")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-l.ch:
					batch = append(batch, e)
					if len(batch) == batchSize {
						flush()
					}
				default:
					flush()
					log.WithFields(logrus.Fields{
						"written": l.Written(),
						"dropped": l.Dropped(),
					}).Info("track log drained")
					return nil
				}
			}
		case e := <-l.ch:
			batch = append(batch, e)
			if len(batch) == batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (l *Log) insert(ctx context.Context, batch []entry) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "BeginTx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO points (track, x, y, recorded_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "PrepareContext")
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.ExecContext(ctx, e.track, e.p.X, e.p.Y, e.at.UnixNano()); err != nil {
			return errors.Wrap(err, "ExecContext")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "Commit")
	}
	l.written.Add(int64(len(batch)))
	return nil
}

// Points reads back up to limit points of one track, most recent first. limit <= 0 means all.
func (l *Log) Points(ctx context.Context, id int, limit int) ([]track.Point, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT x, y FROM points WHERE track = ? ORDER BY recorded_at DESC, rowid DESC LIMIT ?", id, limit)
	if err != nil {
		return nil, errors.Wrap(err, "QueryContext")
	}
	defer rows.Close()

	var out []track.Point
	for rows.Next() {
		var p track.Point
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return nil, errors.Wrap(err, "Scan")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "rows")
}

func (l *Log) Close() error {
	return l.db.Close()
}

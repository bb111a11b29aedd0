package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
)

// SqliteStore persists sessions and sweep results in a Sqlite database.
// Writes go through a lazily-opened WAL connection; reads use a separate
// read-only connection so a renderer can follow an in-progress run.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the database at dbPath. The
// schema is initialized on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, mode string, config any) (sessionID string, err error) {
	var configData sql.NullString

	if config != nil {
		switch v := config.(type) {
		case string:
			configData.Valid = true
			configData.String = v

		case []byte:
			configData.Valid = true
			configData.String = string(v)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	sessionID = uuid.NewString()
	if _, err = db.ExecContext(ctx, insertSessionSQL, sessionID, mode, configData); err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	return sessionID, nil
}

func (s *SqliteStore) StoreRun(ctx context.Context, sessionID string, run sweep.BandwidthRun) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackWithError(tx, &err)
		}
	}()

	sweepStmt, err := tx.PrepareContext(ctx, insertSweepSQL)
	if err != nil {
		return fmt.Errorf("preparing sweep statement: %w", err)
	}
	defer closeWithError(sweepStmt, &err)

	pointStmt, err := tx.PrepareContext(ctx, insertPointSQL)
	if err != nil {
		return fmt.Errorf("preparing point statement: %w", err)
	}
	defer closeWithError(pointStmt, &err)

	for i, result := range run.Results {
		var res sql.Result
		res, err = sweepStmt.ExecContext(ctx, sessionID, run.Bandwidth, i,
			result.Start.UTC(), result.End.UTC())
		if err != nil {
			return fmt.Errorf("inserting sweep %d: %w", i, err)
		}

		var sweepID int64
		if sweepID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading sweep id: %w", err)
		}

		for _, p := range result.Points {
			_, err = pointStmt.ExecContext(ctx, sweepID, p.Index, p.Frequency, p.Z0,
				p.Param, real(p.Value), imag(p.Value))
			if err != nil {
				return fmt.Errorf("inserting point %d of sweep %d: %w", p.Index, i, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing sweeps: %w", err)
	}
	return nil
}

func (s *SqliteStore) Session(ctx context.Context, id string) (*Session, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	session, err := scanSession(db.QueryRowContext(ctx, selectSessionSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	return session, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		session, sErr := scanSession(rows)
		if sErr != nil {
			return nil, fmt.Errorf("scanning session: %w", sErr)
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, nil
}

func (s *SqliteStore) Sweeps(ctx context.Context, sessionID string) (sweeps []*SweepRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSweepsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading sweeps: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var rec SweepRecord
		var start, end time.Time
		if err = rows.Scan(&rec.ID, &rec.SessionID, &rec.Bandwidth, &rec.SweepIndex, &start, &end); err != nil {
			return nil, fmt.Errorf("scanning sweep: %w", err)
		}

		rec.Start = start
		rec.End = end
		sweeps = append(sweeps, &rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sweeps: %w", err)
	}

	for _, rec := range sweeps {
		if rec.Points, err = s.points(ctx, db, rec.ID); err != nil {
			return nil, fmt.Errorf("reading points of sweep %d: %w", rec.ID, err)
		}
	}

	return sweeps, nil
}

func (s *SqliteStore) points(ctx context.Context, db *sql.DB, sweepID int64) (points []sweep.Point, err error) {
	rows, err := db.QueryContext(ctx, selectPointsSQL, sweepID)
	if err != nil {
		return nil, err
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var p sweep.Point
		var re, im float64
		if err = rows.Scan(&p.Index, &p.Frequency, &p.Z0, &p.Param, &re, &im); err != nil {
			return nil, err
		}

		p.Value = complex(re, im)
		points = append(points, p)
	}

	return points, rows.Err()
}

// Close releases both database connections. Safe to call multiple times.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var config sql.NullString

	if err := row.Scan(&session.ID, &session.StartTime, &session.Mode, &config); err != nil {
		return nil, err
	}

	if config.Valid {
		session.Config = &config.String
	}
	return &session, nil
}

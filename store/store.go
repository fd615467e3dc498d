/*
Package store keeps named history of model snapshots in sqlite
*/
package store

import (
	"bytes"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go-ml.dev/pkg/gmminr/model"
	"go-ml.dev/pkg/zorros/zorros"
	"golang.org/x/xerrors"
)

var ErrNotFound = xerrors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	created INTEGER NOT NULL,
	params  INTEGER NOT NULL,
	blob    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_name ON snapshots(name, id);
`

/*
Entry describes one stored snapshot
*/
type Entry struct {
	ID      int64
	Name    string
	Created time.Time
	Params  int // count of learnable values
}

type Store struct {
	db *sql.DB
}

/*
Open opens or creates the snapshot database, ":memory:" keeps it in memory
*/
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	// in-memory databases live per connection
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, zorros.Wrapf(err, "failed to prepare snapshot database %v", path)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

/*
Put appends the snapshot to the history of the name
*/
func (s *Store) Put(name string, snap *model.Snapshot) (int64, error) {
	var b bytes.Buffer
	if err := model.WriteSnapshot(&b, snap); err != nil {
		return 0, zorros.Trace(err)
	}
	r, err := s.db.Exec(
		`INSERT INTO snapshots(name, created, params, blob) VALUES(?, ?, ?, ?)`,
		name, time.Now().UnixNano(), model.Count(snap.Params), b.Bytes())
	if err != nil {
		return 0, zorros.Wrapf(err, "failed to store snapshot `%v`", name)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, zorros.Trace(err)
	}
	return id, nil
}

/*
Get returns the snapshot by id
*/
func (s *Store) Get(id int64) (*model.Snapshot, error) {
	return s.read(s.db.QueryRow(`SELECT blob FROM snapshots WHERE id = ?`, id), id)
}

/*
Latest returns the most recent snapshot of the name
*/
func (s *Store) Latest(name string) (*model.Snapshot, error) {
	return s.read(s.db.QueryRow(`SELECT blob FROM snapshots WHERE name = ? ORDER BY id DESC LIMIT 1`, name), name)
}

func (s *Store) read(row *sql.Row, key interface{}) (*model.Snapshot, error) {
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, xerrors.Errorf("`%v`: %w", key, ErrNotFound)
		}
		return nil, zorros.Trace(err)
	}
	snap, err := model.ReadSnapshot(bytes.NewReader(blob))
	if err != nil {
		return nil, zorros.Wrapf(err, "snapshot `%v` is broken", key)
	}
	return snap, nil
}

/*
List returns history of the name, the newest first
*/
func (s *Store) List(name string) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, name, created, params FROM snapshots WHERE name = ? ORDER BY id DESC`, name)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	defer rows.Close()
	var r []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err = rows.Scan(&e.ID, &e.Name, &created, &e.Params); err != nil {
			return nil, zorros.Trace(err)
		}
		e.Created = time.Unix(0, created)
		r = append(r, e)
	}
	if err = rows.Err(); err != nil {
		return nil, zorros.Trace(err)
	}
	return r, nil
}

/*
Delete removes the whole history of the name
*/
func (s *Store) Delete(name string) (int64, error) {
	r, err := s.db.Exec(`DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return 0, zorros.Trace(err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, zorros.Trace(err)
	}
	return n, nil
}

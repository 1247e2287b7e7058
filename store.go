package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Level is one labelled difficulty of the dataset index.
type Level struct {
	LevelKey
	ID       string
	Name     string
	Stars    float64
	SongPath string
	InfoFile string
}

// Store is the sqlite dataset index: labelled levels and recorded failures.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	initStatement := `
	create table if not exists levels
	  (
		  hash text not null,
		  difficulty text not null,
		  id text not null,
		  name text,
		  stars real,
		  song_path text,
		  info_file text,
		  primary key (hash, difficulty)
	  );
	create table if not exists failures
	  (
		  id integer not null primary key,
		  category text not null,
		  map_key text not null,
		  reason text,
		  created_at timestamp default current_timestamp
	  );
	`
	if _, err := db.Exec(initStatement); err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertLevel inserts l or replaces the row with the same key.
func (s *Store) UpsertLevel(l Level) error {
	_, err := s.db.Exec(`
	insert into levels(hash, difficulty, id, name, stars, song_path, info_file)
	values(?, ?, ?, ?, ?, ?, ?)
	on conflict(hash, difficulty) do update set
		id = excluded.id,
		name = excluded.name,
		stars = excluded.stars,
		song_path = excluded.song_path,
		info_file = excluded.info_file`,
		l.Hash, l.Difficulty, l.ID, l.Name, l.Stars, l.SongPath, l.InfoFile)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", l.LevelKey.ID(), err)
	}
	return nil
}

// Level returns the row for key, or ok false.
func (s *Store) Level(key LevelKey) (l Level, ok bool, err error) {
	row := s.db.QueryRow(`
	select hash, difficulty, id, name, stars, song_path, info_file
	from levels where hash = ? and difficulty = ?`, key.Hash, key.Difficulty)
	err = row.Scan(&l.Hash, &l.Difficulty, &l.ID, &l.Name, &l.Stars, &l.SongPath, &l.InfoFile)
	if errors.Is(err, sql.ErrNoRows) {
		return Level{}, false, nil
	}
	if err != nil {
		return Level{}, false, err
	}
	return l, true, nil
}

// Levels returns every row ordered by key.
func (s *Store) Levels() ([]Level, error) {
	rows, err := s.db.Query(`
	select hash, difficulty, id, name, stars, song_path, info_file
	from levels order by hash, difficulty`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.Hash, &l.Difficulty, &l.ID, &l.Name, &l.Stars, &l.SongPath, &l.InfoFile); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func (s *Store) RecordFailure(category, key, reason string) error {
	_, err := s.db.Exec("insert into failures(category, map_key, reason) values(?, ?, ?)", category, key, reason)
	return err
}

// FailureCount is the number of failures recorded under category.
func (s *Store) FailureCount(category string) (int, error) {
	var n int
	err := s.db.QueryRow("select count(*) from failures where category = ?", category).Scan(&n)
	return n, err
}

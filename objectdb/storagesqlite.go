package objectdb

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// SQLiteStorage keeps the command journal in a single SQLite table. Same
// contract as JSONStorage, different durability tradeoffs.
type SQLiteStorage struct {
	Filename string
	db       *sql.DB
}

func NewSQLiteStorage(filename string) (*SQLiteStorage, error) {

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		uuid TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create commands table: %w", err)
	}

	return &SQLiteStorage{
		Filename: filename,
		db:       db,
	}, nil
}

func (s *SQLiteStorage) Append(command *Command) error {
	if s.db == nil {
		return fmt.Errorf("storage is closed")
	}

	_, err := s.db.Exec(
		`INSERT INTO commands (name, uuid, timestamp, payload) VALUES (?, ?, ?, ?)`,
		command.Name, command.Uuid, command.Timestamp, []byte(command.Payload),
	)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Load(f func(command *Command) error) error {

	rows, err := s.db.Query(`SELECT name, uuid, timestamp, payload FROM commands ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("select commands: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		command := &Command{}
		var payload []byte
		err := rows.Scan(&command.Name, &command.Uuid, &command.Timestamp, &payload)
		if err != nil {
			return fmt.Errorf("scan command: %w", err)
		}
		command.Payload = payload

		err = f(command)
		if err != nil {
			return err
		}
	}

	return rows.Err()
}

func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStorage) Drop() error {
	err := s.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	err = os.Remove(s.Filename)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

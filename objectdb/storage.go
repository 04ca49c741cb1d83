package objectdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	json2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Storage persists the command journal. Append must be durable in order;
// Load replays every command oldest first.
type Storage interface {
	Append(command *Command) error
	Load(f func(command *Command) error) error
	Close() error
	Drop() error
}

// openStorage picks the backend from the connection url: file://<dir> keeps
// an append-only JSON journal, sqlite://<path> keeps the same journal in a
// SQLite table. A bare path behaves like file://.
func openStorage(url string) (Storage, error) {
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		return NewJSONStorage(url)
	}

	switch scheme {
	case "file":
		return NewJSONStorage(rest)
	case "sqlite":
		return NewSQLiteStorage(rest)
	}

	return nil, fmt.Errorf("unknown url scheme '%s'", scheme)
}

type JSONStorage struct {
	Filename string
	file     *os.File
	buffer   *bufio.Writer
}

func NewJSONStorage(dir string) (*JSONStorage, error) {

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	filename := path.Join(dir, "journal")

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("open file for write: %w", err)
	}

	return &JSONStorage{
		Filename: filename,
		file:     file,
		buffer:   bufio.NewWriter(file),
	}, nil
}

func (s *JSONStorage) Append(command *Command) error {
	if s.file == nil {
		return fmt.Errorf("storage is closed")
	}

	err := json2.MarshalWrite(s.buffer, command)
	if err != nil {
		return fmt.Errorf("json encode command: %w", err)
	}
	s.buffer.WriteByte('\n')

	return s.buffer.Flush()
}

func (s *JSONStorage) Load(f func(command *Command) error) error {

	file, err := os.Open(s.Filename)
	if err != nil {
		return fmt.Errorf("open file for read: %w", err)
	}
	defer file.Close()

	decoder := jsontext.NewDecoder(bufio.NewReader(file))
	for {
		command := &Command{}
		err := json2.UnmarshalDecode(decoder, command)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("decode json: %w", err)
		}

		err = f(command)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *JSONStorage) Close() error {
	if s.file == nil {
		return nil
	}

	err := s.buffer.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	err = s.file.Close()
	s.file = nil
	return err
}

func (s *JSONStorage) Drop() error {
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

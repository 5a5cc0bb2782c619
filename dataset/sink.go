package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// RecordSink receives the records produced by a sampler.
type RecordSink interface {
	Write(Record) error
	Close() error
}

// JSONArraySink streams records into a file holding a single JSON array.
type JSONArraySink struct {
	f       *os.File
	w       *bufio.Writer
	count   int
	written bool
}

// NewJSONArraySink creates (or truncates) path and opens a JSON array in it.
func NewJSONArraySink(path string) (*JSONArraySink, error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return nil, NewIOError(err, "creating %s", path)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString("["); err != nil {
		return nil, multierr.Combine(NewIOError(err, "writing %s", path), f.Close())
	}
	return &JSONArraySink{f: f, w: w}, nil
}

// Write appends one record to the array.
func (s *JSONArraySink) Write(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	sep := ",\n"
	if !s.written {
		sep = "\n"
	}
	if _, err := s.w.WriteString(sep); err != nil {
		return NewIOError(err, "writing %s", s.f.Name())
	}
	if _, err := s.w.Write(data); err != nil {
		return NewIOError(err, "writing %s", s.f.Name())
	}
	s.written = true
	s.count++
	return nil
}

// Count returns how many records were written.
func (s *JSONArraySink) Count() int {
	return s.count
}

// Path returns the file being written.
func (s *JSONArraySink) Path() string {
	return s.f.Name()
}

// Close terminates the array and closes the file.
func (s *JSONArraySink) Close() error {
	closing := "]\n"
	if s.written {
		closing = "\n]\n"
	}
	_, err := s.w.WriteString(closing)
	return multierr.Combine(err, s.w.Flush(), s.f.Close())
}

// CSVSink writes one row per record under a header naming every column.
type CSVSink struct {
	f      *os.File
	w      *csv.Writer
	links  int
	joints int
	header bool
}

// NewCSVSink creates (or truncates) path for records tracking the given number of links over the given
// number of joints.
func NewCSVSink(path string, links, joints int) (*CSVSink, error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return nil, NewIOError(err, "creating %s", path)
	}
	return &CSVSink{f: f, w: csv.NewWriter(f), links: links, joints: joints}, nil
}

func (s *CSVSink) writeHeader() error {
	if s.header {
		return nil
	}
	s.header = true
	return s.w.Write(CSVHeader(s.links, s.joints))
}

// Write appends one row.
func (s *CSVSink) Write(r Record) error {
	if len(r.Before) != s.links || len(r.BeforeJoints) != s.joints {
		return errors.Errorf("record with %d links and %d joints does not fit a table of %d links and %d joints",
			len(r.Before), len(r.BeforeJoints), s.links, s.joints)
	}
	if err := s.writeHeader(); err != nil {
		return NewIOError(err, "writing %s", s.f.Name())
	}
	if err := s.w.Write(r.CSVRow()); err != nil {
		return NewIOError(err, "writing %s", s.f.Name())
	}
	return nil
}

// Close writes the header if no row was written, flushes and closes the file.
func (s *CSVSink) Close() error {
	err := s.writeHeader()
	s.w.Flush()
	return multierr.Combine(err, s.w.Error(), s.f.Close())
}

// MemorySink keeps records in memory. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

// Write appends a record.
func (s *MemorySink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink is closed")
	}
	s.records = append(s.records, r)
	return nil
}

// Close stops accepting records.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Records returns the records written so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record{}, s.records...)
}

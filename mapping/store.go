package mapping

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Tables is a consistent snapshot of the class and property tables.
type Tables struct {
	Classes    *Table
	Properties *Table
	LoadedAt   time.Time
}

// StoreConfig locates the two tables on disk.
type StoreConfig struct {
	ClassTable    string
	PropertyTable string
	SourcePrefix  string
}

// Store holds the current Tables and swaps them atomically on Reload.
// Readers take a snapshot with Tables and keep using it for the whole
// transform, so a concurrent reload never mixes tables mid-call.
type Store struct {
	config  StoreConfig
	current atomic.Pointer[Tables]
	logger  *slog.Logger
}

// NewStore loads both tables and returns a ready store.
func NewStore(config StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{config: config, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps already loaded tables. Reload on a static store is
// a no-op.
func NewStaticStore(classes, properties *Table) *Store {
	s := &Store{logger: slog.Default()}
	s.current.Store(&Tables{Classes: classes, Properties: properties, LoadedAt: time.Now()})
	return s
}

// Tables returns the current snapshot.
func (s *Store) Tables() *Tables {
	return s.current.Load()
}

// Reload reads both tables again. On failure the previous snapshot stays
// in place and the error is returned.
func (s *Store) Reload() error {
	if s.config.ClassTable == "" && s.config.PropertyTable == "" {
		return nil
	}

	classes, err := Load(s.config.ClassTable, s.config.SourcePrefix)
	if err != nil {
		return fmt.Errorf("load class table: %w", err)
	}
	properties, err := Load(s.config.PropertyTable, s.config.SourcePrefix)
	if err != nil {
		return fmt.Errorf("load property table: %w", err)
	}

	s.current.Store(&Tables{Classes: classes, Properties: properties, LoadedAt: time.Now()})
	s.logger.Info("Mapping tables loaded",
		"class_table", s.config.ClassTable,
		"classes", classes.Len(),
		"property_table", s.config.PropertyTable,
		"properties", properties.Len())

	if d := classes.Duplicates() + properties.Duplicates(); d > 0 {
		s.logger.Warn("Mapping tables contain duplicate identifiers; first entry kept",
			"duplicates", d)
	}
	return nil
}

// Paths returns the table files backing the store.
func (s *Store) Paths() []string {
	var paths []string
	if s.config.ClassTable != "" {
		paths = append(paths, s.config.ClassTable)
	}
	if s.config.PropertyTable != "" {
		paths = append(paths, s.config.PropertyTable)
	}
	return paths
}

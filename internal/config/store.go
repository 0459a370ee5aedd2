package config

import (
	"os"
	"sync"

	"sortmedia/internal/errors"
	"sortmedia/internal/log"

	"gopkg.in/yaml.v3"
)

// Store persists the run values across sessions. Front-ends call Load once
// at startup and Save once at shutdown.
type Store interface {
	Load() (RunConfiguration, error)
	Save(RunConfiguration) error
}

// FileStore keeps the run values in the YAML config file. It reads and
// writes only the run group; the other sections are neither validated nor
// changed.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the config file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored run values, or zero values when nothing was saved yet
func (s *FileStore) Load() (RunConfiguration, error) {
	var run RunConfiguration

	doc, err := s.read()
	if errors.IsConfigNotFound(err) {
		return run, nil
	}
	if err != nil {
		return run, err
	}

	if group := lookup(doc, GroupKey); group != nil {
		if err := group.Decode(&run); err != nil {
			return RunConfiguration{}, errors.NewConfigError("invalid run values", GroupKey, errors.InvalidConfig, err)
		}
	}
	log.LogWithFields(log.F("path", s.path)).Debug("Loaded run configuration")
	return run, nil
}

// Save stores run values
func (s *FileStore) Save(run RunConfiguration) error {
	doc, err := s.read()
	if err != nil && !errors.IsConfigNotFound(err) {
		return err
	}
	if doc == nil {
		doc = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	var group yaml.Node
	if err := group.Encode(run); err != nil {
		return errors.Wrap(err, "failed to encode run values")
	}
	replace(doc, GroupKey, &group)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := writeFile(s.path, data); err != nil {
		return err
	}
	log.LogWithFields(log.F("path", s.path)).Debug("Saved run configuration")
	return nil
}

// read returns the top-level mapping of the config file. An empty file
// yields nil without error.
func (s *FileStore) read() (*yaml.Node, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, errors.NewConfigError("config file not found", s.path, errors.ConfigNotFound, err)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %s", s.path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewConfigError("error parsing config file", s.path, errors.InvalidConfig, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.NewConfigError("config file is not a mapping", s.path, errors.InvalidConfig, nil)
	}
	return root, nil
}

// lookup returns the value of key in mapping m
func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// replace sets key in mapping m, keeping its position when present
func replace(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu    sync.Mutex
	run   RunConfiguration
	saves int
}

func NewMemoryStore(initial RunConfiguration) *MemoryStore {
	return &MemoryStore{run: initial}
}

func (s *MemoryStore) Load() (RunConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run, nil
}

func (s *MemoryStore) Save(run RunConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = run
	s.saves++
	return nil
}

// Saves returns how many times Save was called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

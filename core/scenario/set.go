package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// AllScenarios selects every scenario of a set.
const AllScenarios = "all"

var ErrScenarioNotFound = errors.New("scenario not found")

// Set maps scenario names to their ordered messages. Iteration follows the
// order in which scenarios appear in the metadata file.
type Set struct {
	scenarios *orderedmap.OrderedMap[string, []Message]
}

func NewSet() *Set {
	return &Set{scenarios: orderedmap.New[string, []Message]()}
}

// Load reads a scenario metadata file. Failing to load it is fatal for a run.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario metadata: %w", err)
	}
	defer f.Close()

	set, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return set, nil
}

func Decode(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario metadata: %w", err)
	}

	set := NewSet()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("failed to decode scenario metadata: %w", err)
	}
	return set, nil
}

func (s *Set) UnmarshalJSON(data []byte) error {
	scenarios := orderedmap.New[string, []Message]()
	if err := json.Unmarshal(data, scenarios); err != nil {
		return err
	}
	s.scenarios = scenarios
	return nil
}

func (s *Set) MarshalJSON() ([]byte, error) {
	if s.scenarios == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.scenarios)
}

// Save writes the set as indented JSON, creating the parent directory.
func (s *Set) Save(path string) error {
	compact, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode scenario metadata: %w", err)
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, compact, "", "  "); err != nil {
		return fmt.Errorf("failed to indent scenario metadata: %w", err)
	}
	indented.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	if err := os.WriteFile(path, indented.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write scenario metadata: %w", err)
	}
	return nil
}

func (s *Set) Add(name string, messages []Message) {
	s.init()
	s.scenarios.Set(name, messages)
}

func (s *Set) Get(name string) ([]Message, bool) {
	s.init()
	return s.scenarios.Get(name)
}

func (s *Set) Len() int {
	s.init()
	return s.scenarios.Len()
}

func (s *Set) Names() []string {
	s.init()
	names := make([]string, 0, s.scenarios.Len())
	for pair := s.scenarios.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Select returns a new set holding only the named scenario, or the whole set
// when name is [AllScenarios].
func (s *Set) Select(name string) (*Set, error) {
	if name == AllScenarios || name == "" {
		return s, nil
	}

	messages, ok := s.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, name)
	}
	selected := NewSet()
	selected.Add(name, messages)
	return selected, nil
}

func (s *Set) init() {
	if s.scenarios == nil {
		s.scenarios = orderedmap.New[string, []Message]()
	}
}

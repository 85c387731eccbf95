package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// LoadCatalog parses a YAML content catalog.
func LoadCatalog(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	snap.fill()
	for i := range snap.Subjects {
		if snap.Subjects[i].Key == "" {
			return nil, fmt.Errorf("parsing catalog: subject %d has no key", i)
		}
	}
	return &snap, nil
}

// Default returns a fresh copy of the bundled catalog. Callers may modify the
// result freely.
func Default() *Snapshot {
	snap, err := LoadCatalog(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("content: bundled catalog: %v", err))
	}
	return snap
}

// DefaultAchievements returns the bundled achievement catalog.
func DefaultAchievements() []Achievement {
	return Default().Achievements
}

// fill replaces nil collections so a snapshot always serializes with empty
// objects and arrays.
func (s *Snapshot) fill() {
	if s.Subjects == nil {
		s.Subjects = []Subject{}
	}
	for i := range s.Subjects {
		if s.Subjects[i].Topics == nil {
			s.Subjects[i].Topics = []Topic{}
		}
	}
	if s.Sections == nil {
		s.Sections = map[string][]Section{}
	}
	if s.Objectives == nil {
		s.Objectives = map[string][]LearningObjective{}
	}
	if s.KeyTerms == nil {
		s.KeyTerms = map[string][]KeyTerm{}
	}
	if s.StudyContent == nil {
		s.StudyContent = map[string][]StudyContent{}
	}
	if s.Formulas == nil {
		s.Formulas = map[string][]Formula{}
	}
	if s.QuizQuestions == nil {
		s.QuizQuestions = map[string][]QuizQuestion{}
	}
	if s.Achievements == nil {
		s.Achievements = []Achievement{}
	}
}

// Package content holds the study hub's curriculum model and the normalizer
// that builds it from spreadsheet tables.
package content

// SectionType classifies a topic section.
type SectionType string

const (
	SectionObjectives   SectionType = "objectives"
	SectionIntro        SectionType = "intro"
	SectionContent      SectionType = "content"
	SectionApplications SectionType = "applications"
	SectionQuiz         SectionType = "quiz"
)

// SectionTypes lists the recognised section types.
var SectionTypes = []SectionType{
	SectionObjectives,
	SectionIntro,
	SectionContent,
	SectionApplications,
	SectionQuiz,
}

// ParseSectionType maps a cell to a SectionType. Blank or unrecognised values
// fall back to SectionContent.
func ParseSectionType(s string) SectionType {
	for _, t := range SectionTypes {
		if string(t) == s {
			return t
		}
	}
	return SectionContent
}

// Subject is a top-level curriculum area. Key is the stable lookup key that
// topic rows reference.
type Subject struct {
	Key      string  `json:"key" yaml:"key"`
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Icon     string  `json:"icon" yaml:"icon"`
	Color    string  `json:"color" yaml:"color"`
	LightBg  string  `json:"lightBg" yaml:"light_bg"`
	Gradient string  `json:"gradient" yaml:"gradient"`
	DarkGlow string  `json:"darkGlow" yaml:"dark_glow"`
	Topics   []Topic `json:"topics" yaml:"topics"`
}

// Topic is a unit of study inside a subject.
type Topic struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Duration   int    `json:"duration" yaml:"duration"`
	OrderIndex int    `json:"orderIndex" yaml:"order_index"`
}

// Section is a chapter of a topic.
type Section struct {
	ID         string      `json:"id" yaml:"id"`
	Title      string      `json:"title" yaml:"title"`
	Icon       string      `json:"icon" yaml:"icon"`
	Type       SectionType `json:"type" yaml:"type"`
	OrderIndex int         `json:"orderIndex" yaml:"order_index"`
}

// LearningObjective is a stated goal of a topic.
type LearningObjective struct {
	ID         string `json:"id" yaml:"id"`
	Text       string `json:"text" yaml:"text"`
	OrderIndex int    `json:"orderIndex" yaml:"order_index"`
}

// KeyTerm is a vocabulary entry of a topic.
type KeyTerm struct {
	ID         string `json:"id" yaml:"id"`
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}

// StudyContent is a block of explanatory material inside a section.
type StudyContent struct {
	ID         string `json:"id" yaml:"id"`
	Type       string `json:"type" yaml:"type"`
	Title      string `json:"title" yaml:"title"`
	Text       string `json:"text" yaml:"text"`
	OrderIndex int    `json:"orderIndex" yaml:"order_index"`
}

// Variable describes one symbol of a formula.
type Variable struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Name   string `json:"name" yaml:"name"`
	Unit   string `json:"unit" yaml:"unit"`
}

// Formula is a named equation with up to five described variables.
type Formula struct {
	ID        string     `json:"id" yaml:"id"`
	Formula   string     `json:"formula" yaml:"formula"`
	Label     string     `json:"label" yaml:"label"`
	Variables []Variable `json:"variables" yaml:"variables"`
}

// QuizOption is one labelled answer choice.
type QuizOption struct {
	Label string `json:"label" yaml:"label"`
	Text  string `json:"text" yaml:"text"`
}

// QuizQuestion is a multiple-choice question. Options holds between zero and
// four entries; empty option cells are dropped.
type QuizQuestion struct {
	ID            string       `json:"id" yaml:"id"`
	Question      string       `json:"question" yaml:"question"`
	Options       []QuizOption `json:"options" yaml:"options"`
	CorrectAnswer string       `json:"correctAnswer" yaml:"correct_answer"`
	Explanation   string       `json:"explanation" yaml:"explanation"`
	XPReward      int          `json:"xpReward" yaml:"xp_reward"`
}

// Achievement is a badge from the static catalog.
type Achievement struct {
	ID          string `json:"id" yaml:"id"`
	Icon        string `json:"icon" yaml:"icon"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"desc" yaml:"desc"`
	Condition   string `json:"condition,omitempty" yaml:"condition"`
}

// Snapshot is a complete, immutable set of normalized content. A published
// snapshot is never mutated; a new one replaces it wholesale.
type Snapshot struct {
	Subjects      []Subject                      `json:"subjects" yaml:"subjects"`
	Sections      map[string][]Section           `json:"sections" yaml:"sections"`
	Objectives    map[string][]LearningObjective `json:"objectives" yaml:"objectives"`
	KeyTerms      map[string][]KeyTerm           `json:"keyTerms" yaml:"key_terms"`
	StudyContent  map[string][]StudyContent      `json:"studyContent" yaml:"study_content"`
	Formulas      map[string][]Formula           `json:"formulas" yaml:"formulas"`
	QuizQuestions map[string][]QuizQuestion      `json:"quizQuestions" yaml:"quiz_questions"`
	Achievements  []Achievement                  `json:"achievements" yaml:"achievements"`
}

// Subject returns the subject with the given key.
func (s *Snapshot) Subject(key string) (Subject, bool) {
	for _, sub := range s.Subjects {
		if sub.Key == key {
			return sub, true
		}
	}
	return Subject{}, false
}

// Topic finds a topic by ID and returns it with its owning subject key.
func (s *Snapshot) Topic(id string) (Topic, string, bool) {
	for _, sub := range s.Subjects {
		for _, t := range sub.Topics {
			if t.ID == id {
				return t, sub.Key, true
			}
		}
	}
	return Topic{}, "", false
}

// SectionOrdinal returns the position of a section within its topic's ordered
// section list together with the list length.
func (s *Snapshot) SectionOrdinal(topicID, sectionID string) (ordinal, total int, ok bool) {
	sections := s.Sections[topicID]
	for i, sec := range sections {
		if sec.ID == sectionID {
			return i, len(sections), true
		}
	}
	return 0, len(sections), false
}

// TopicIDs returns the IDs of every topic in subject order.
func (s *Snapshot) TopicIDs() []string {
	var ids []string
	for _, sub := range s.Subjects {
		for _, t := range sub.Topics {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/studyhub/internal/sheets"
)

func TestDefault_Catalog(t *testing.T) {
	snap := Default()

	require.Len(t, snap.Subjects, 4)
	keys := make([]string, len(snap.Subjects))
	for i, s := range snap.Subjects {
		keys[i] = s.Key
		assert.Len(t, s.Topics, 3, "subject %s", s.Key)
	}
	assert.Equal(t, []string{"physics", "math", "chemistry", "biology"}, keys)

	physics, ok := snap.Subject("physics")
	require.True(t, ok)
	assert.Equal(t, "phys-001", physics.ID)
	assert.Equal(t, "from-blue-500 to-blue-600", physics.Gradient)

	topic, subject, ok := snap.Topic("bio-t002")
	require.True(t, ok)
	assert.Equal(t, "biology", subject)
	assert.Equal(t, 35, topic.Duration)

	assert.Len(t, snap.Sections["phys-t001"], 7)
	assert.Len(t, snap.Objectives["phys-t001"], 4)
	assert.Len(t, snap.KeyTerms["phys-t001"], 5)
	assert.Len(t, snap.StudyContent["phys-t001-s004"], 5)
	require.Len(t, snap.Formulas["phys-t001"], 1)
	assert.Len(t, snap.Formulas["phys-t001"][0].Variables, 3)

	quiz := snap.QuizQuestions["phys-t001"]
	require.Len(t, quiz, 3)
	assert.Equal(t, []string{"B", "C", "C"}, []string{quiz[0].CorrectAnswer, quiz[1].CorrectAnswer, quiz[2].CorrectAnswer})

	assert.Len(t, snap.Achievements, 8)
	assert.Equal(t, "first-login", snap.Achievements[0].ID)
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Subjects[0].Name = "changed"
	a.Sections["phys-t001"] = nil

	b := Default()
	assert.Equal(t, "Physics", b.Subjects[0].Name)
	assert.Len(t, b.Sections["phys-t001"], 7)
}

func TestSnapshot_SectionOrdinal(t *testing.T) {
	snap := Default()

	ordinal, total, ok := snap.SectionOrdinal("phys-t001", "phys-t001-s004")
	require.True(t, ok)
	assert.Equal(t, 3, ordinal)
	assert.Equal(t, 7, total)

	_, _, ok = snap.SectionOrdinal("phys-t001", "missing")
	assert.False(t, ok)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	_, err := LoadCatalog([]byte("subjects: [unterminated"))
	assert.Error(t, err)

	_, err = LoadCatalog([]byte("subjects:\n  - name: No key\n"))
	assert.Error(t, err)
}

func TestToSheets_RoundTrip(t *testing.T) {
	want := Default()

	set := sheets.TableSet{}
	for _, sheet := range ToSheets(want) {
		set[sheet.Name] = sheets.ParseRows(append([][]string{sheet.Columns}, sheet.Rows...))
	}
	got := TransformAll(set)

	assert.Equal(t, want, got)
	assert.True(t, ValidateTables(set).OK())
}

package material

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/algorithm-ninja/task-wizard/internal/judge"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

func TestMergeRanges(t *testing.T) {
	t.Parallel()

	merged := MergeRanges(nil)
	if merged.Precision != 0 || merged.Max != 0 {
		t.Fatalf("empty merge = %+v, want zero", merged)
	}

	merged = MergeRanges([]ScoreRange{
		{Precision: 0, Max: 40},
		{Precision: 2, Max: 60},
		{Precision: 1, Max: 0},
	})
	if merged.Precision != 2 {
		t.Fatalf("precision = %d, want 2", merged.Precision)
	}
	if merged.Max != 100 {
		t.Fatalf("max = %v, want 100", merged.Max)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()
	r := ScoreRange{Precision: 0, Max: 40}
	if got := r.Clamp(-3); got != 0 {
		t.Fatalf("Clamp(-3) = %v, want 0", got)
	}
	if got := r.Clamp(25); got != 25 {
		t.Fatalf("Clamp(25) = %v, want 25", got)
	}
	if got := r.Clamp(99); got != 40 {
		t.Fatalf("Clamp(99) = %v, want 40", got)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	t.Parallel()

	subtask := SubtaskKey(3)
	if subtask.String() != "subtask.3" {
		t.Fatalf("subtask key = %q", subtask.String())
	}
	testcase := TestcaseKey(2, 7)
	if testcase.String() != "subtask.2.testcase.7.score" {
		t.Fatalf("testcase key = %q", testcase.String())
	}

	for _, key := range []Key{subtask, testcase} {
		parsed, err := ParseKey(key.String())
		if err != nil {
			t.Fatalf("parse %q: %v", key.String(), err)
		}
		if parsed != key {
			t.Fatalf("round trip: got %+v, want %+v", parsed, key)
		}
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, s := range []string{
		"",
		"subtask",
		"subtask.x",
		"testcase.1.score",
		"subtask.1.testcase.2",
		"subtask.1.testcase.two.score",
		"total",
	} {
		if _, err := ParseKey(s); appErr.GetCode(err) != appErr.InvalidFormat {
			t.Fatalf("ParseKey(%q): expected InvalidFormat, got %v", s, err)
		}
	}
}

func twoSubtaskTask() judge.TaskDescription {
	return judge.TaskDescription{
		Title: "sums",
		Subtasks: []judge.Subtask{
			{ID: 2, MaxScore: 40, Testcases: []judge.Testcase{{ID: 3}, {ID: 2}}},
			{ID: 1, MaxScore: 0, Testcases: []judge.Testcase{{ID: 1}}},
		},
	}
}

func TestBuildScorablesSkipZeroWeight(t *testing.T) {
	t.Parallel()
	m := Build(twoSubtaskTask(), t.TempDir())

	if len(m.Scorables) != 1 {
		t.Fatalf("scorables = %d, want 1", len(m.Scorables))
	}
	s := m.Scorables[0]
	if s.Name != "subtask.2" {
		t.Fatalf("scorable name = %q", s.Name)
	}
	if s.Range.Max != 40 || s.Range.Precision != 0 {
		t.Fatalf("scorable range = %+v", s.Range)
	}
}

func TestBuildFeedbackTable(t *testing.T) {
	t.Parallel()
	m := Build(twoSubtaskTask(), t.TempDir())

	if len(m.Feedback.Cols) != 2 {
		t.Fatalf("cols = %d, want 2", len(m.Feedback.Cols))
	}
	if m.Feedback.Cols[0].Kind != ColRowNumber || m.Feedback.Cols[1].Kind != ColScore {
		t.Fatalf("unexpected column kinds: %+v", m.Feedback.Cols)
	}
	scoreCol := m.Feedback.Cols[1]
	if scoreCol.Range == nil || scoreCol.Range.Precision != 2 || scoreCol.Range.Max != 1 {
		t.Fatalf("score col range = %+v", scoreCol.Range)
	}

	// One row-group per subtask regardless of weight, sorted by subtask id.
	if len(m.Feedback.RowGroups) != 2 {
		t.Fatalf("row groups = %d, want 2", len(m.Feedback.RowGroups))
	}
	if m.Feedback.RowGroups[0].Title != "Subtask 1" || m.Feedback.RowGroups[1].Title != "Subtask 2" {
		t.Fatalf("group titles: %q, %q", m.Feedback.RowGroups[0].Title, m.Feedback.RowGroups[1].Title)
	}
	if len(m.Feedback.RowGroups[0].Rows) != 1 || len(m.Feedback.RowGroups[1].Rows) != 2 {
		t.Fatalf("row counts: %d, %d", len(m.Feedback.RowGroups[0].Rows), len(m.Feedback.RowGroups[1].Rows))
	}

	// Testcases inside a group are sorted ascending and keyed per testcase.
	rows := m.Feedback.RowGroups[1].Rows
	if rows[0].Cells[0].RowNumber != 2 || rows[1].Cells[0].RowNumber != 3 {
		t.Fatalf("rows not sorted: %+v", rows)
	}
	if rows[0].Cells[1].ScoreKey != "subtask.2.testcase.2.score" {
		t.Fatalf("score key = %q", rows[0].Cells[1].ScoreKey)
	}
}

func TestBuildEmptyTask(t *testing.T) {
	t.Parallel()
	m := Build(judge.TaskDescription{Title: "empty"}, t.TempDir())

	if len(m.Scorables) != 0 {
		t.Fatalf("scorables = %d, want 0", len(m.Scorables))
	}
	if len(m.Feedback.RowGroups) != 0 {
		t.Fatalf("row groups = %d, want 0", len(m.Feedback.RowGroups))
	}
	if len(m.Statements) != 0 || len(m.Attachments) != 0 {
		t.Fatalf("expected no files: %+v %+v", m.Statements, m.Attachments)
	}
	total := m.TotalScoreRange()
	if total.Precision != 0 || total.Max != 0 {
		t.Fatalf("total range = %+v, want zero", total)
	}
}

func TestBuildStatements(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	statementDir := filepath.Join(dir, "statement")
	if err := os.MkdirAll(statementDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"en.pdf", "it.md", "notes.docx"} {
		if err := os.WriteFile(filepath.Join(statementDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m := Build(judge.TaskDescription{Title: "t"}, dir)
	if len(m.Statements) != 2 {
		t.Fatalf("statements = %d, want 2 (docx skipped)", len(m.Statements))
	}
	byLang := map[string]FileVariant{}
	for _, s := range m.Statements {
		byLang[s.Language] = s
	}
	if byLang["en"].MIME != "application/pdf" {
		t.Fatalf("en statement MIME = %q", byLang["en"].MIME)
	}
	if byLang["it"].MIME != "application/markdown" {
		t.Fatalf("it statement MIME = %q", byLang["it"].MIME)
	}
}

func TestBuildStatementsFromTestoDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testoDir := filepath.Join(dir, "testo")
	if err := os.MkdirAll(testoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(testoDir, "it.html"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := Build(judge.TaskDescription{Title: "t"}, dir)
	if len(m.Statements) != 1 || m.Statements[0].Language != "it" || m.Statements[0].MIME != "text/html" {
		t.Fatalf("statements = %+v", m.Statements)
	}
}

func TestBuildAttachments(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	attDir := filepath.Join(dir, "att")
	if err := os.MkdirAll(attDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(attDir, "grader.cpp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(attDir, "data.weird"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := Build(judge.TaskDescription{Title: "t"}, dir)
	if len(m.Attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(m.Attachments))
	}
	for _, a := range m.Attachments {
		if a.Name == "data.weird" && a.MIME != "" {
			t.Fatalf("unknown extension MIME = %q, want empty", a.MIME)
		}
	}
}

func TestTotalScoreRange(t *testing.T) {
	t.Parallel()
	m := Material{Scorables: []Scorable{
		{Range: ScoreRange{Precision: 0, Max: 40}},
		{Range: ScoreRange{Precision: 0, Max: 60}},
	}}
	total := m.TotalScoreRange()
	if total.Max != 100 || total.Precision != 0 {
		t.Fatalf("total = %+v", total)
	}
}

func TestSubmissionForm(t *testing.T) {
	t.Parallel()
	m := Build(judge.TaskDescription{Title: "t"}, t.TempDir())
	if len(m.Form.Fields) != 1 {
		t.Fatalf("fields = %d, want 1", len(m.Form.Fields))
	}
	field := m.Form.Fields[0]
	if field.ID != "solution" || len(field.Types) != 1 || field.Types[0].PrimaryExtension != ".cpp" {
		t.Fatalf("unexpected form field: %+v", field)
	}
}

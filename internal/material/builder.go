package material

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/algorithm-ninja/task-wizard/internal/judge"
)

// statementDirNames are the directories searched for problem statements, in
// order. "testo" is the italy_yaml task format name.
var statementDirNames = []string{"statement", "testo"}

// attachmentsDirName holds extra downloadable files.
const attachmentsDirName = "att"

// testcaseCellRange is the score range of every per-testcase cell.
var testcaseCellRange = ScoreRange{Precision: 2, Max: 1}

// Build flattens a judge task tree plus the unpacked problem directory into
// a Material. Missing statement or attachment directories yield empty slices
// and a task with no subtasks yields empty scorables, never an error.
func Build(task judge.TaskDescription, dir string) Material {
	subtasks := sortedSubtasks(task)
	return Material{
		Title:       task.Title,
		Statements:  statementsOf(dir),
		Attachments: attachmentsOf(dir),
		Form:        submissionForm(),
		Scorables:   scorablesOf(subtasks),
		Feedback:    feedbackTable(subtasks),
	}
}

func sortedSubtasks(task judge.TaskDescription) []judge.Subtask {
	subtasks := make([]judge.Subtask, len(task.Subtasks))
	copy(subtasks, task.Subtasks)
	sort.Slice(subtasks, func(i, j int) bool { return subtasks[i].ID < subtasks[j].ID })
	for i := range subtasks {
		testcases := make([]judge.Testcase, len(subtasks[i].Testcases))
		copy(testcases, subtasks[i].Testcases)
		sort.Slice(testcases, func(a, b int) bool { return testcases[a].ID < testcases[b].ID })
		subtasks[i].Testcases = testcases
	}
	return subtasks
}

func scorablesOf(subtasks []judge.Subtask) []Scorable {
	scorables := make([]Scorable, 0, len(subtasks))
	for _, subtask := range subtasks {
		if subtask.MaxScore <= 0 {
			continue
		}
		key := SubtaskKey(subtask.ID)
		scorables = append(scorables, Scorable{
			Key:   key,
			Name:  key.String(),
			Title: fmt.Sprintf("Subtask %d", subtask.ID),
			// IOI-like tasks use integer subtask scores.
			Range: ScoreRange{Precision: 0, Max: subtask.MaxScore},
		})
	}
	return scorables
}

func feedbackTable(subtasks []judge.Subtask) Table {
	cellRange := testcaseCellRange
	groups := make([]RowGroup, 0, len(subtasks))
	for _, subtask := range subtasks {
		rows := make([]Row, 0, len(subtask.Testcases))
		for _, testcase := range subtask.Testcases {
			rows = append(rows, Row{Cells: []Cell{
				{Kind: CellRowNumber, RowNumber: testcase.ID},
				{Kind: CellScore, ScoreKey: TestcaseKey(subtask.ID, testcase.ID).String()},
			}})
		}
		groups = append(groups, RowGroup{
			Title: fmt.Sprintf("Subtask %d", subtask.ID),
			Rows:  rows,
		})
	}
	return Table{
		Cols: []Col{
			{Kind: ColRowNumber, Title: "Case"},
			{Kind: ColScore, Title: "Score", Range: &cellRange},
		},
		RowGroups: groups,
	}
}

func submissionForm() Form {
	return Form{
		Fields: []FormField{{
			ID:    "solution",
			Title: "Solution",
			Types: []FileType{{
				ID:               "cpp",
				Title:            "C++",
				Extensions:       []string{".cpp", ".cc"},
				PrimaryExtension: ".cpp",
			}},
		}},
	}
}

func statementsOf(dir string) []FileVariant {
	statements := []FileVariant{}
	statementDir := ""
	for _, name := range statementDirNames {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			statementDir = candidate
			break
		}
	}
	if statementDir == "" {
		return statements
	}

	entries, err := os.ReadDir(statementDir)
	if err != nil {
		return statements
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		mimeType, ok := statementMIME(ext)
		if !ok {
			continue
		}
		statements = append(statements, FileVariant{
			Language: strings.TrimSuffix(name, filepath.Ext(name)),
			MIME:     mimeType,
			Name:     name,
			Path:     filepath.Join(statementDir, name),
		})
	}
	return statements
}

func attachmentsOf(dir string) []Attachment {
	attachments := []Attachment{}
	attDir := filepath.Join(dir, attachmentsDirName)
	entries, err := os.ReadDir(attDir)
	if err != nil {
		return attachments
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		attachments = append(attachments, Attachment{
			Title: name,
			Name:  name,
			MIME:  attachmentMIME(name),
			Path:  filepath.Join(attDir, name),
		})
	}
	return attachments
}

package material

import (
	"fmt"
	"strconv"
	"strings"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// KeyKind discriminates feedback key shapes.
type KeyKind int

const (
	// KindSubtask names a subtask-level scorable: "subtask.<id>".
	KindSubtask KeyKind = iota
	// KindTestcase names one testcase score cell:
	// "subtask.<id>.testcase.<id>.score".
	KindTestcase
)

// Key identifies a scoring slot in the feedback model. The string form is
// the wire contract between the material builder (which references keys in
// table cells) and the evaluation orchestrator (which receives award
// outcomes keyed the same way).
type Key struct {
	Kind       KeyKind
	SubtaskID  int
	TestcaseID int
}

// SubtaskKey builds the key for a subtask-level scorable.
func SubtaskKey(subtaskID int) Key {
	return Key{Kind: KindSubtask, SubtaskID: subtaskID}
}

// TestcaseKey builds the key for a testcase score cell.
func TestcaseKey(subtaskID, testcaseID int) Key {
	return Key{Kind: KindTestcase, SubtaskID: subtaskID, TestcaseID: testcaseID}
}

func (k Key) String() string {
	switch k.Kind {
	case KindTestcase:
		return fmt.Sprintf("subtask.%d.testcase.%d.score", k.SubtaskID, k.TestcaseID)
	default:
		return fmt.Sprintf("subtask.%d", k.SubtaskID)
	}
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ".")
	switch {
	case len(parts) == 2 && parts[0] == "subtask":
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Key{}, appErr.Newf(appErr.InvalidFormat, "malformed feedback key %q", s)
		}
		return SubtaskKey(id), nil
	case len(parts) == 5 && parts[0] == "subtask" && parts[2] == "testcase" && parts[4] == "score":
		subtaskID, err := strconv.Atoi(parts[1])
		if err != nil {
			return Key{}, appErr.Newf(appErr.InvalidFormat, "malformed feedback key %q", s)
		}
		testcaseID, err := strconv.Atoi(parts[3])
		if err != nil {
			return Key{}, appErr.Newf(appErr.InvalidFormat, "malformed feedback key %q", s)
		}
		return TestcaseKey(subtaskID, testcaseID), nil
	default:
		return Key{}, appErr.Newf(appErr.InvalidFormat, "malformed feedback key %q", s)
	}
}

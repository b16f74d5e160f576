package judge

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/logger"
)

// scanBufferSize bounds a single event line from the harness.
const scanBufferSize = 1 << 20

// HarnessConfig points at the external judge binary.
type HarnessConfig struct {
	// Binary is the judge executable, e.g. "task-maker".
	Binary string `yaml:"binary"`
	// Args are prepended to every invocation.
	Args []string `yaml:"args"`
}

// HarnessClient drives the external judge as a subprocess. The harness
// speaks a line protocol: `<binary> task-info --task-dir DIR` prints one
// task description JSON document, `<binary> evaluate --task-dir DIR
// --file FIELD=PATH...` streams one event JSON document per line.
type HarnessClient struct {
	binary string
	args   []string
}

func NewHarnessClient(cfg HarnessConfig) (*HarnessClient, error) {
	if cfg.Binary == "" {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("judge binary is required")
	}
	return &HarnessClient{binary: cfg.Binary, args: cfg.Args}, nil
}

func (c *HarnessClient) Task(ctx context.Context, taskDir string) (TaskDescription, error) {
	args := append(append([]string{}, c.args...), "task-info", "--task-dir", taskDir)
	output, err := exec.CommandContext(ctx, c.binary, args...).Output()
	if err != nil {
		return TaskDescription{}, appErr.Wrap(err, appErr.TaskDescribeFailed)
	}
	var task TaskDescription
	if err := json.Unmarshal(output, &task); err != nil {
		return TaskDescription{}, appErr.Wrap(err, appErr.TaskDescribeFailed)
	}
	return task, nil
}

func (c *HarnessClient) Evaluate(ctx context.Context, req EvaluateRequest) (<-chan Event, error) {
	submissionDir, err := os.MkdirTemp("", "submission-")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.JudgeDispatchFailed)
	}

	args := append(append([]string{}, c.args...), "evaluate", "--task-dir", req.TaskDir)
	for field, content := range req.Files {
		path := filepath.Join(submissionDir, filepath.Base(field))
		if err := os.WriteFile(path, content, 0o600); err != nil {
			_ = os.RemoveAll(submissionDir)
			return nil, appErr.Wrap(err, appErr.JudgeDispatchFailed)
		}
		args = append(args, "--file", field+"="+path)
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = os.RemoveAll(submissionDir)
		return nil, appErr.Wrap(err, appErr.JudgeDispatchFailed)
	}
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(submissionDir)
		return nil, appErr.Wrap(err, appErr.JudgeDispatchFailed)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer func() { _ = os.RemoveAll(submissionDir) }()

		ended := false
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var event Event
			if err := json.Unmarshal(line, &event); err != nil {
				logger.Warn(ctx, "malformed judge event",
					zap.String("evaluation_id", req.EvaluationID), zap.Error(err))
				continue
			}
			if event.Type == EventDone || event.Type == EventError {
				ended = true
			}
			events <- event
		}

		err := cmd.Wait()
		if scanErr := scanner.Err(); scanErr != nil && err == nil {
			err = scanErr
		}
		if err != nil && !ended {
			events <- Event{Type: EventError, Error: "judge exited abnormally: " + err.Error()}
		}
	}()
	return events, nil
}

var _ Client = (*HarnessClient)(nil)

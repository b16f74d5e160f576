package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"github.com/algorithm-ninja/task-wizard/internal/cli/command"
	httpclient "github.com/algorithm-ninja/task-wizard/internal/cli/http"
	"github.com/algorithm-ninja/task-wizard/internal/cli/state"
)

const prompt = "wizard> "

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	tokenState *state.TokenState
	statePath  string
	prettyJSON bool
	rl         *readline.Instance
}

func New(client *httpclient.Client, commands map[string]command.Command, tokenState *state.TokenState, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:     client,
		commands:   commands,
		tokenState: tokenState,
		statePath:  statePath,
		prettyJSON: prettyJSON,
	}
}

// Run drives the interactive loop until exit or EOF.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()
	s.rl = rl

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if done := s.handleSystemCommand(line); done {
			if line == "exit" || line == "quit" {
				return nil
			}
			continue
		}
		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) completer() readline.AutoCompleter {
	keys := make([]string, 0, len(s.commands))
	for key := range s.commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
		readline.PcItem("logout"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout")),
		readline.PcItem("show", readline.PcItem("token")),
	}
	byService := map[string][]readline.PrefixCompleterInterface{}
	for _, key := range keys {
		parts := strings.SplitN(key, " ", 2)
		byService[parts[0]] = append(byService[parts[0]], readline.PcItem(parts[1]))
	}
	services := make([]string, 0, len(byService))
	for service := range byService {
		services = append(services, service)
	}
	sort.Strings(services)
	for _, service := range services {
		items = append(items, readline.PcItem(service, byService[service]...))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) handleSystemCommand(line string) bool {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		return true
	case "help":
		s.printHelp()
		return true
	case "logout":
		s.tokenState.Token = ""
		s.tokenState.UserID = ""
		if err := state.Clear(s.statePath); err != nil {
			s.printLine("clear token state failed: %v", err)
		} else {
			s.printLine("logged out")
		}
		return true
	case "show token":
		if s.tokenState.Token == "" {
			s.printLine("no token")
		} else {
			s.printLine("user %s, obtained %s", s.tokenState.UserID, s.tokenState.ObtainedAt.Format(time.RFC3339))
		}
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		s.printLine("usage: set base <url> | set timeout <duration>")
		return
	}
	switch parts[0] {
	case "base":
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		d, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(d)
		s.printLine("timeout set to %s", d)
	default:
		s.printLine("unknown setting: %s", parts[0])
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse input failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("expected: <service> <action> [key=value ...]")
	}

	key := tokens[0] + " " + tokens[1]
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s", key)
	}

	params := command.Params{}
	for _, token := range tokens[2:] {
		name, value, found := strings.Cut(token, "=")
		if !found {
			return fmt.Errorf("expected key=value, got %q", token)
		}
		params.Set(name, value)
	}
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}

	spec, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}

	var info httpclient.ResponseInfo
	if spec.Multipart != nil {
		info, err = s.client.DoMultipart(ctx, spec.Method, spec.Path,
			spec.Multipart.FieldName, spec.Multipart.FileName, spec.Multipart.Content)
	} else {
		info, err = s.client.Do(ctx, spec.Method, spec.Path, spec.Query, spec.Body)
	}
	if err != nil {
		return err
	}

	s.printLine("HTTP %d (%s)", info.StatusCode, info.Duration.Round(time.Millisecond))
	s.printBody(info.Body)

	if cmd.Key() == "auth login" && info.StatusCode == 200 {
		s.storeToken(info.Body)
	}
	return nil
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required || params.Has(field.Name) {
			continue
		}
		s.rl.SetPrompt(field.Prompt + ": ")
		line, err := s.rl.Readline()
		s.rl.SetPrompt(prompt)
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		params.Set(field.Name, strings.TrimSpace(line))
	}
	return nil
}

func (s *Session) storeToken(body []byte) {
	var envelope struct {
		Data struct {
			Token  string `json:"token"`
			UserID string `json:"user_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data.Token == "" {
		return
	}
	s.tokenState.Token = envelope.Data.Token
	s.tokenState.UserID = envelope.Data.UserID
	s.tokenState.ObtainedAt = time.Now()
	if err := state.Save(s.statePath, *s.tokenState); err != nil {
		s.printLine("save token state failed: %v", err)
		return
	}
	s.printLine("token saved for %s", envelope.Data.UserID)
}

func (s *Session) printBody(body []byte) {
	if len(body) == 0 {
		return
	}
	if s.prettyJSON && json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			s.printLine("%s", buf.String())
			return
		}
	}
	s.printLine("%s", string(body))
}

func (s *Session) printHelp() {
	keys := make([]string, 0, len(s.commands))
	for key := range s.commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	s.printLine("commands:")
	for _, key := range keys {
		cmd := s.commands[key]
		fields := make([]string, 0, len(cmd.Fields))
		for _, field := range cmd.Fields {
			name := field.Name
			if !field.Required {
				name = "[" + name + "]"
			}
			fields = append(fields, name+"=...")
		}
		s.printLine("  %-22s %s", key, strings.Join(fields, " "))
	}
	s.printLine("  %-22s %s", "set base|timeout", "change connection settings")
	s.printLine("  %-22s %s", "show token", "print stored login")
	s.printLine("  %-22s %s", "logout", "forget the stored token")
	s.printLine("  %-22s %s", "help, exit", "")
}

func (s *Session) printLine(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

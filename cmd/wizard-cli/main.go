package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/algorithm-ninja/task-wizard/internal/cli/command"
	"github.com/algorithm-ninja/task-wizard/internal/cli/config"
	httpclient "github.com/algorithm-ninja/task-wizard/internal/cli/http"
	"github.com/algorithm-ninja/task-wizard/internal/cli/repl"
	"github.com/algorithm-ninja/task-wizard/internal/cli/state"
)

const defaultConfigPath = "configs/wizard_cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	token := flag.String("token", "", "Override access token")
	statePath := flag.String("state", "", "Override token state path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.TokenStatePath = *statePath
	}

	tokenState, err := state.Load(cfg.TokenStatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load token state failed: %v\n", err)
		return
	}
	if *token != "" {
		tokenState.Token = *token
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout, func() string {
		return tokenState.Token
	})

	session := repl.New(client, command.Registry(), &tokenState, cfg.TokenStatePath,
		cfg.PrettyJSON != nil && *cfg.PrettyJSON)
	if err := session.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}

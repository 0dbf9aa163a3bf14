package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/codefionn/charwizard/internal/config"
	"github.com/codefionn/charwizard/internal/logger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type appStateKey struct{}

type runtimeState struct {
	Config     *config.Config
	ConfigPath string
	Logger     *logger.Logger
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "charwizard",
		Short: "Create chatbot characters and their avatars",
		Long: "charwizard turns a short description into a chatbot character profile " +
			"with Groq, optionally enriched from a web page through Exa, and renders " +
			"an avatar over the Runware image-generation socket.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeState(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if state, err := obtainState(cmd); err == nil {
				_ = state.Logger.Close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.GetConfigPath(), "Path to the configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error|none); overrides the config file")

	cmd.SetContext(context.Background())
	cmd.AddCommand(newCreateCommand())
	cmd.AddCommand(newAvatarCommand())
	cmd.AddCommand(newKeysCommand())
	return cmd
}

func initializeState(cmd *cobra.Command, opts *rootOptions) error {
	root := cmd.Root()
	ctx := root.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Value(appStateKey{}).(*runtimeState); ok {
		return nil
	}

	path := strings.TrimSpace(opts.configPath)
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	levelName := cfg.LogLevel
	if opts.logLevel != "" {
		levelName = opts.logLevel
	}
	level := logger.ParseLevel(levelName)

	var log *logger.Logger
	if level == logger.LevelNone || cfg.LogPath == "" {
		log = logger.Discard()
	} else {
		log, err = logger.New(level, cfg.LogPath, "")
		if err != nil {
			// Logging must never block the wizard.
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", cfg.LogPath, err)
			log = logger.NewWriter(level, cmd.ErrOrStderr(), "")
		}
	}
	logger.SetGlobal(log)
	log.Debug("Loaded configuration from %s", path)

	state := &runtimeState{Config: cfg, ConfigPath: path, Logger: log}
	root.SetContext(context.WithValue(ctx, appStateKey{}, state))
	cmd.SetContext(root.Context())
	return nil
}

func obtainState(cmd *cobra.Command) (*runtimeState, error) {
	ctx := cmd.Root().Context()
	if ctx == nil {
		return nil, errors.New("charwizard: command context missing")
	}
	state, _ := ctx.Value(appStateKey{}).(*runtimeState)
	if state == nil {
		return nil, errors.New("charwizard: application state not initialised")
	}
	return state, nil
}

// promptForKey reads a key from in, hiding the input when in is a terminal.
func promptForKey(in io.Reader, out io.Writer, service string) (string, error) {
	fmt.Fprintf(out, "%s API key: ", service)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ensureKey fills *key by prompting when it is empty and stdin is
// interactive. The prompt is skipped for piped input so scripts fail fast.
func ensureKey(cmd *cobra.Command, key *string, service string) {
	if strings.TrimSpace(*key) != "" {
		return
	}
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return
	}
	if value, err := promptForKey(f, cmd.ErrOrStderr(), service); err == nil {
		*key = value
	}
}

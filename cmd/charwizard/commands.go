package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/codefionn/charwizard/internal/character"
	"github.com/codefionn/charwizard/internal/exa"
	"github.com/codefionn/charwizard/internal/llm"
	"github.com/codefionn/charwizard/internal/runware"
	"github.com/spf13/cobra"
)

// newService wires the wizard from the loaded configuration. The returned
// cleanup closes the image socket when one was opened.
func newService(state *runtimeState, withImages bool) (*character.Service, func(), error) {
	cfg := state.Config

	gen := llm.NewCharacterGenerator(cfg.GeneratorConfig(), cfg.GroqCredential(), nil)
	gen.SetLogger(state.Logger.WithPrefix("llm"))

	opts := []character.Option{
		character.WithLogger(state.Logger.WithPrefix("character")),
	}
	if strings.TrimSpace(cfg.Exa.APIKey) != "" {
		opts = append(opts, character.WithExtractor(exa.NewClient(cfg.ExaCredential(),
			exa.WithBaseURL(cfg.Exa.BaseURL),
			exa.WithLogger(state.Logger.WithPrefix("exa")),
		)))
	}

	cleanup := func() {}
	if withImages {
		client, err := runware.NewClient(cfg.RunwareClientConfig(), cfg.RunwareCredential(),
			runware.WithLogger(state.Logger.WithPrefix("runware")),
			runware.WithNotifier(runware.NotifierFunc(func(message string) {
				fmt.Fprintf(os.Stderr, "runware: %s\n", message)
			})),
		)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, character.WithImageGenerator(client))
		cleanup = func() { _ = client.Close() }
	}

	return character.NewService(gen, opts...), cleanup, nil
}

func writeProfile(out io.Writer, p *character.Profile, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	fmt.Fprintf(out, "Name:     %s\n", p.Name)
	fmt.Fprintf(out, "Title:    %s\n", p.Title)
	fmt.Fprintf(out, "Greeting: %s\n\n", p.Greeting)
	fmt.Fprintf(out, "Persona:\n%s\n\n", p.Persona)
	fmt.Fprintf(out, "Scenario:\n%s\n", p.Scenario)
	if len(p.ExampleDialogues) > 0 {
		fmt.Fprintln(out, "\nExample dialogues:")
		for _, d := range p.ExampleDialogues {
			fmt.Fprintf(out, "- %s\n", d)
		}
	}
	if p.AvatarURL != "" {
		fmt.Fprintf(out, "\nAvatar: %s\n", p.AvatarURL)
	}
	return nil
}

func newCreateCommand() *cobra.Command {
	var (
		description string
		url         string
		avatar      bool
		output      string
	)

	cmd := &cobra.Command{
		Use:   "create [description]",
		Short: "Generate a character profile from a description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := obtainState(cmd)
			if err != nil {
				return err
			}
			if description == "" && len(args) == 1 {
				description = args[0]
			}

			ensureKey(cmd, &state.Config.Groq.APIKey, "Groq")
			if avatar {
				ensureKey(cmd, &state.Config.Runware.APIKey, "Runware")
			}

			svc, cleanup, err := newService(state, avatar)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			profile, err := svc.CreateProfile(ctx, character.Description{Text: description, URL: url})
			if err != nil {
				return err
			}
			if avatar {
				if _, err := svc.GenerateAvatar(ctx, profile); err != nil {
					return err
				}
			}
			return writeProfile(cmd.OutOrStdout(), profile, output)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Character description")
	cmd.Flags().StringVar(&url, "url", "", "Web page with additional context (requires an Exa key)")
	cmd.Flags().BoolVar(&avatar, "avatar", false, "Also generate an avatar image")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")
	return cmd
}

func newAvatarCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "avatar <profile.json|->",
		Short: "Generate an avatar for a saved character profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := obtainState(cmd)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var profile character.Profile
			if err := json.NewDecoder(in).Decode(&profile); err != nil {
				return fmt.Errorf("failed to read profile: %w", err)
			}

			// stdin is taken when the profile is piped in.
			if args[0] != "-" {
				ensureKey(cmd, &state.Config.Runware.APIKey, "Runware")
			}

			svc, cleanup, err := newService(state, true)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := svc.GenerateAvatar(cmd.Context(), &profile); err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), &profile, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (text|json)")
	return cmd
}

func newKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Show which API keys are configured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := obtainState(cmd)
			if err != nil {
				return err
			}
			cfg := state.Config
			status := character.CheckKeys(cmd.Context(), cfg.RunwareCredential(), cfg.ExaCredential(), cfg.GroqCredential())

			out := cmd.OutOrStdout()
			for _, row := range []struct {
				name string
				set  bool
			}{{"runware", status.Runware}, {"exa", status.Exa}, {"groq", status.Groq}} {
				mark := "missing"
				if row.set {
					mark = "set"
				}
				fmt.Fprintf(out, "%-8s %s\n", row.name, mark)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set <runware|exa|groq>",
		Short:     "Store an API key in the configuration file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"runware", "exa", "groq"},
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := obtainState(cmd)
			if err != nil {
				return err
			}

			var target *string
			switch strings.ToLower(args[0]) {
			case "runware":
				target = &state.Config.Runware.APIKey
			case "exa":
				target = &state.Config.Exa.APIKey
			case "groq":
				target = &state.Config.Groq.APIKey
			default:
				return fmt.Errorf("unknown service %q", args[0])
			}

			key, err := promptForKey(cmd.InOrStdin(), cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("no key entered")
			}
			*target = key

			if err := state.Config.Save(state.ConfigPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s key to %s\n", args[0], state.ConfigPath)
			return nil
		},
	})
	return cmd
}

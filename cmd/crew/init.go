package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/crew/internal/config"
	"github.com/flemzord/crew/internal/provider"
)

// initAnswers are the choices crew init collects.
type initAnswers struct {
	Agent   string
	Persona string
	Model   string
	Packs   []string
	Memory  bool
	Gateway bool
	Bind    string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Agent:   "Scout",
		Persona: "You are a careful research assistant.",
		Model:   "gpt-4o",
		Packs:   []string{"research", "memory"},
		Memory:  true,
		Gateway: true,
		Bind:    "127.0.0.1:8080",
	}
}

func initCmd() *cobra.Command {
	var (
		output string
		yes    bool
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", output)
				}
			}

			answers := defaultAnswers()
			if !yes {
				if err := askInit(&answers); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
			}

			raw, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
				return err
			}
			if err := os.WriteFile(output, raw, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nSet %s before running crew.\n", output, keyEnv(answers.Model))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.FileName, "Where to write the configuration")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func askInit(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Agent name").
				Value(&a.Agent).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Persona").
				Value(&a.Persona),
			huh.NewSelect[string]().
				Title("Model").
				Options(huh.NewOptions("gpt-4o", "gpt-4o-mini", "claude-sonnet-4-20250514", "gemini-2.0-flash")...).
				Value(&a.Model),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Skill packs").
				Options(huh.NewOptions("research", "memory", "files", "team")...).
				Value(&a.Packs),
			huh.NewConfirm().
				Title("Persist memory and runs in SQLite?").
				Value(&a.Memory),
			huh.NewConfirm().
				Title("Enable the HTTP gateway?").
				Value(&a.Gateway),
		),
	)
	return form.Run()
}

// keyEnv names the environment variable the generated file reads the
// agent's key from.
func keyEnv(model string) string {
	switch provider.KindForModel(model) {
	case provider.KindAnthropic:
		return "ANTHROPIC_API_KEY"
	case provider.KindGoogle:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

type initFile struct {
	Version string                    `yaml:"version"`
	Modules map[string]map[string]any `yaml:"modules,omitempty"`
	Agents  map[string]initAgent      `yaml:"agents"`
}

type initAgent struct {
	Model   string   `yaml:"model"`
	APIKey  string   `yaml:"api_key"`
	Persona string   `yaml:"persona,omitempty"`
	Tools   []string `yaml:"tools,omitempty"`
}

func renderConfig(a initAnswers) ([]byte, error) {
	f := initFile{
		Version: "1",
		Modules: map[string]map[string]any{},
		Agents: map[string]initAgent{
			strings.TrimSpace(a.Agent): {
				Model:   a.Model,
				APIKey:  "${" + keyEnv(a.Model) + "}",
				Persona: strings.TrimSpace(a.Persona),
				Tools:   a.Packs,
			},
		},
	}
	if a.Memory {
		f.Modules["memory.sqlite"] = map[string]any{}
	}
	if a.Gateway {
		f.Modules["gateway.http"] = map[string]any{"bind": a.Bind}
	}
	if len(f.Modules) == 0 {
		f.Modules = nil
	}

	raw, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}
	return append([]byte("# Generated by crew init.\n"), raw...), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flemzord/crew/internal/agent"
	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/provider"
	"github.com/flemzord/crew/pkg/app"
)

func runCmd() *cobra.Command {
	var (
		owner     string
		task      string
		heartbeat bool
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "run <agent> [message]",
		Short: "Run one agent invocation and print the answer",
		Long: `Run one agent invocation without starting long-running modules.

With a message, the agent is chatted with. With --task, the message is the
task description. With --heartbeat, the agent runs its scheduled check-in.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			message := ""
			if len(args) == 2 {
				message = args[1]
			}
			if !heartbeat && task == "" && message == "" {
				return errors.New("a message, --task or --heartbeat is required")
			}

			cfg, path, err := app.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			stack, err := app.Build(ctx, cfg, app.Options{
				ConfigPath: path,
				Stderr:     cmd.ErrOrStderr(),
				LogLevel:   logLevel(cmd),
			})
			if err != nil {
				return err
			}
			defer stack.Close(context.WithoutCancel(ctx))
			if err := stack.App.Start(); err != nil {
				return err
			}
			defer stack.App.Stop()

			if owner == "" {
				owner = cfg.ResolvedOwner()
			}
			var obs agent.Observer
			if !quiet {
				obs = newTracer(cmd.ErrOrStderr()).observe
			}

			var run memory.Run
			switch {
			case heartbeat:
				run, err = stack.Runner.Heartbeat(ctx, owner, name)
			case task != "":
				run, err = stack.Runner.Task(ctx, owner, name, task, message, obs)
			default:
				run, err = stack.Runner.Chat(ctx, owner, name, []provider.Message{
					{Role: provider.RoleUser, Content: message},
				}, obs)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the agent (default: config owner)")
	cmd.Flags().StringVar(&task, "task", "", "Run a task with this title; the message is its description")
	cmd.Flags().BoolVar(&heartbeat, "heartbeat", false, "Run the agent's heartbeat instead of a chat")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the tool trace")
	cmd.MarkFlagsMutuallyExclusive("task", "heartbeat")
	return cmd
}

// tracer prints loop events as a colored trace.
type tracer struct {
	w      io.Writer
	step   *color.Color
	name   *color.Color
	result *color.Color
	fail   *color.Color
}

func newTracer(w io.Writer) *tracer {
	return &tracer{
		w:      w,
		step:   color.New(color.FgHiBlack),
		name:   color.New(color.FgCyan, color.Bold),
		result: color.New(color.FgGreen),
		fail:   color.New(color.FgRed),
	}
}

func (t *tracer) observe(e agent.Event) {
	switch e.Type {
	case agent.EventRoundTrip:
		t.step.Fprintf(t.w, "· round trip %d\n", e.Iteration)
	case agent.EventToolStart:
		if e.Tool == nil {
			return
		}
		t.name.Fprintf(t.w, "→ %s", e.Tool.Tool)
		fmt.Fprintf(t.w, " %s\n", clip(e.Tool.Args, 120))
	case agent.EventToolEnd:
		if e.Tool == nil {
			return
		}
		c := t.result
		if strings.HasPrefix(e.Tool.Result, "Error") {
			c = t.fail
		}
		c.Fprintf(t.w, "← %s\n", clip(e.Tool.Result, 200))
	case agent.EventDone:
		if e.Result != nil && e.Result.StopReason == agent.StopReasonMaxIterations {
			t.fail.Fprintf(t.w, "· stopped after %d iterations\n", e.Result.Iterations)
		}
	}
}

// clip shortens s to n runes on a single line.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

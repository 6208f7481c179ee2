package runner

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/flemzord/crew/internal/memory"
	"github.com/flemzord/crew/internal/team"
	"github.com/flemzord/crew/internal/tool/builtin"
)

// HeartbeatOK is the reply a heartbeat run gives when nothing needs doing.
const HeartbeatOK = "HEARTBEAT_OK"

func systemPrompt(a team.Agent, teammates []string, canDelegate bool) string {
	var b strings.Builder
	if p := strings.TrimSpace(a.Persona); p != "" {
		b.WriteString(p)
	} else {
		fmt.Fprintf(&b, "You are %s, a helpful assistant.", a.Name)
	}

	if canDelegate {
		others := slices.DeleteFunc(slices.Clone(teammates), func(n string) bool {
			return strings.EqualFold(n, a.Name)
		})
		if len(others) > 0 {
			fmt.Fprintf(&b, "\n\nYour name is %s. Teammates you can delegate to with %s: %s.",
				a.Name, builtin.Delegate, strings.Join(others, ", "))
		}
	}
	return b.String()
}

func taskPrompt(title, description string) string {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title == "":
		return "Task:\n\n" + description
	case description == "":
		return "Task: " + title
	default:
		return "Task: " + title + "\n\n" + description
	}
}

func delegatePrompt(caller, message string) string {
	return fmt.Sprintf("Request from your teammate %s:\n\n%s", caller, message)
}

func heartbeatPrompt(now time.Time, recent []memory.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Heartbeat check-in at %s (UTC).\n", now.UTC().Format(time.RFC3339))
	b.WriteString("Review your recent memory and any pending work. Use your tools if something needs doing, " +
		"then reply with a short status. If nothing needs attention, reply exactly " + HeartbeatOK + ".")
	if len(recent) > 0 {
		b.WriteString("\n\nRecent memory:\n")
		b.WriteString(builtin.FormatEntries(recent))
	} else {
		b.WriteString("\n\nYour memory is empty.")
	}
	return b.String()
}

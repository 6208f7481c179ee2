package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flemzord/crew/internal/tool"
)

func clockTool(now func() time.Time) tool.Tool {
	return &tool.Func{
		ToolName: CurrentTime,
		Desc:     "Get the current date and time. Optionally pass an IANA timezone such as Europe/Paris.",
		Params: schema(`{
  "type": "object",
  "properties": {
    "timezone": {"type": "string", "description": "IANA timezone name; defaults to UTC."}
  }
}`),
		Fn: func(_ context.Context, raw json.RawMessage) (string, error) {
			var args struct {
				Timezone string `json:"timezone"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}
			loc := time.UTC
			if args.Timezone != "" {
				l, err := time.LoadLocation(args.Timezone)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q", args.Timezone)
				}
				loc = l
			}
			t := now().In(loc)
			return fmt.Sprintf("%s (%s)", t.Format(time.RFC3339), t.Weekday()), nil
		},
	}
}

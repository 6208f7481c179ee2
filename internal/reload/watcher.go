// Package reload re-reads the configuration file and applies the parts that
// can change without a restart: the agent roster and skill packs.
package reload

import (
	"context"
	"os"
	"time"
)

// DefaultPollInterval is used when Watch is given a non-positive interval.
const DefaultPollInterval = 5 * time.Second

// Event reports that the watched file changed.
type Event struct {
	Path    string
	ModTime time.Time
}

type fileStamp struct {
	mod  time.Time
	size int64
}

// Watch polls path and sends an Event whenever its modification time or
// size changes. Events are coalesced: if the receiver is behind, later
// changes are dropped until it catches up. The channel is closed when ctx
// is done. A missing file is not an error; polling continues.
func Watch(ctx context.Context, path string, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	events := make(chan Event, 1)
	last, _ := stat(path)

	go func() {
		defer close(events)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			cur, ok := stat(path)
			if !ok || (cur.size == last.size && cur.mod.Equal(last.mod)) {
				continue
			}
			last = cur
			select {
			case events <- Event{Path: path, ModTime: cur.mod}:
			default:
			}
		}
	}()
	return events
}

func stat(path string) (fileStamp, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{mod: info.ModTime(), size: info.Size()}, true
}

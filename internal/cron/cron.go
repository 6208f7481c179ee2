// Package cron schedules periodic background work, such as agent
// heartbeats, from cron expressions.
package cron

import "context"

// Job is a periodic task.
type Job interface {
	// Name uniquely identifies the job.
	Name() string

	// Schedule returns a 5-field cron expression or a descriptor such as
	// "@hourly" or "@every 30m".
	Schedule() string

	// Run executes the job. It should honour ctx cancellation.
	Run(ctx context.Context) error
}

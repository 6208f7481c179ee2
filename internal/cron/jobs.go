package cron

import "context"

// FuncJob adapts a function to Job.
type FuncJob struct {
	JobName string
	Expr    string
	Fn      func(ctx context.Context) error
}

var _ Job = (*FuncJob)(nil)

// Name implements Job.
func (j *FuncJob) Name() string { return j.JobName }

// Schedule implements Job.
func (j *FuncJob) Schedule() string { return j.Expr }

// Run implements Job.
func (j *FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }

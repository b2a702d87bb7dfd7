package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"excelviz/internal/filter"
)

// Plan replays a saved document. Singles are rebuilt first; multis wait until
// the host confirms the singles are in place.
type Plan struct {
	FileName         string
	Columns          []string
	FilterColumns    []string
	Filters          filter.Selection
	Theme            string
	ColorPreferences map[string]map[string]string
	BaseColors       map[string]string

	Singles []Instruction
	Multis  []Instruction
	Skipped []string
}

// Sink is the host that applies a plan
type Sink interface {
	// Prepare applies filters, theme, colors and the selected base columns
	Prepare(ctx context.Context, plan *Plan) error
	Single(ctx context.Context, inst Instruction) error
	Multi(ctx context.Context, inst Instruction) error
}

// Settler blocks until the effects of phase one are observable
type Settler interface {
	Settle(ctx context.Context) error
}

// SettleFunc adapts a function to Settler
type SettleFunc func(ctx context.Context) error

func (f SettleFunc) Settle(ctx context.Context) error {
	return f(ctx)
}

// Immediate settles as soon as phase one returns
var Immediate Settler = SettleFunc(func(ctx context.Context) error { return ctx.Err() })

// Countdown settles after Mark has been called n times
type Countdown struct {
	mu        sync.Mutex
	remaining int
	done      chan struct{}
}

// NewCountdown creates a countdown expecting n marks; n <= 0 is already settled
func NewCountdown(n int) *Countdown {
	c := &Countdown{remaining: n, done: make(chan struct{})}
	if n <= 0 {
		close(c.done)
	}
	return c
}

// Mark records one completed phase-one slot
func (c *Countdown) Mark() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 {
		return
	}
	c.remaining--
	if c.remaining == 0 {
		close(c.done)
	}
}

// Done is closed once every expected mark arrived
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

func (c *Countdown) Settle(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for single charts: %w", ctx.Err())
	}
}

// Report summarizes an executed plan
type Report struct {
	Rendered []string `json:"rendered"`
	Failed   []string `json:"failed,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
}

// Execute runs phase one (prepare, then singles), waits on settler, then runs
// phase two (multis). A failed slot does not stop the others; its error is
// joined into the returned error. A settle failure abandons phase two.
func (p *Plan) Execute(ctx context.Context, sink Sink, settler Settler) (*Report, error) {
	if settler == nil {
		settler = Immediate
	}
	report := &Report{Skipped: append([]string(nil), p.Skipped...)}

	if err := sink.Prepare(ctx, p); err != nil {
		return report, fmt.Errorf("prepare restore: %w", err)
	}

	var errs []error
	run := func(insts []Instruction, apply func(context.Context, Instruction) error) {
		for _, inst := range insts {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				return
			}
			if err := apply(ctx, inst); err != nil {
				log.Printf("[SettingsCodec] Restore of %s failed: %v", inst.Slot, err)
				report.Failed = append(report.Failed, inst.Slot)
				errs = append(errs, fmt.Errorf("%s: %w", inst.Slot, err))
				continue
			}
			report.Rendered = append(report.Rendered, inst.Slot)
		}
	}

	run(p.Singles, sink.Single)

	if len(p.Multis) > 0 {
		if err := settler.Settle(ctx); err != nil {
			for _, inst := range p.Multis {
				report.Failed = append(report.Failed, inst.Slot)
			}
			errs = append(errs, err)
			return report, errors.Join(errs...)
		}
		run(p.Multis, sink.Multi)
	}

	return report, errors.Join(errs...)
}

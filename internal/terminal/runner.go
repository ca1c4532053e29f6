package terminal

import (
	"context"
	"fmt"
	"strings"

	"voucherdesk/internal/voucher"
	"voucherdesk/pkg/formdef"
	"voucherdesk/pkg/logger"
)

// Runner renders one screen on the terminal. Submissions run inline: the
// prompt returns once the outcome is on the screen.
type Runner struct {
	screen *voucher.Screen
	def    *formdef.Definition
	driver PromptDriver
	log    *logger.Logger
}

func NewRunner(screen *voucher.Screen, def *formdef.Definition, driver PromptDriver, log *logger.Logger) *Runner {
	return &Runner{
		screen: screen,
		def:    def,
		driver: driver,
		log:    log,
	}
}

// Run loops over fill, submit and render until the operator declines to
// go again. Fields keep their previous answers as defaults.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.header(ctx); err != nil {
		return err
	}

	for {
		if err := r.fill(ctx); err != nil {
			return err
		}

		if err := r.driver.Info(ctx, r.def.SubmittingLabel); err != nil {
			return err
		}
		out, err := r.screen.Submit(ctx)
		if err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		r.log.Debug("Submission rendered", "kind", out.Kind)

		if err := r.render(ctx); err != nil {
			return err
		}

		again, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: "Submit another request?",
			Default: !out.IsSuccess(),
		})
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

func (r *Runner) header(ctx context.Context) error {
	title := r.def.Title
	if r.def.Subtitle != "" {
		title += "\n" + r.def.Subtitle
	}
	return r.driver.Info(ctx, title)
}

func (r *Runner) fill(ctx context.Context) error {
	form := r.screen.Snapshot().Form

	for _, field := range r.def.Fields {
		current := voucher.FieldValue(form, field.Name)

		var (
			value string
			err   error
		)
		if field.IsSelect() {
			value, err = r.choose(ctx, field, current)
		} else {
			value, err = r.driver.Input(ctx, InputConfig{
				Message: field.Label + ":",
				Default: current,
				Help:    field.Placeholder,
			})
		}
		if err != nil {
			return err
		}

		if err := r.screen.SetField(field.Name, value); err != nil {
			return fmt.Errorf("set %s: %w", field.Name, err)
		}
	}
	return nil
}

func (r *Runner) choose(ctx context.Context, field formdef.Field, current string) (string, error) {
	labels := make([]string, len(field.Options))
	defaultIndex := 0
	for i, opt := range field.Options {
		labels[i] = opt.Label
		if opt.Value == current {
			defaultIndex = i
		}
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      field.Label + ":",
		Options:      labels,
		DefaultIndex: defaultIndex,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(field.Options) {
		return current, nil
	}
	return field.Options[idx].Value, nil
}

func (r *Runner) render(ctx context.Context) error {
	state := r.screen.Snapshot()

	if state.ErrorMessage != "" {
		return r.driver.Info(ctx, "Error: "+state.ErrorMessage)
	}
	if len(state.AssignedSeats) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(r.def.SeatsHeading)
	for _, seat := range state.AssignedSeats {
		b.WriteString("\n  - ")
		b.WriteString(seat)
	}
	return r.driver.Info(ctx, b.String())
}

package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"matforge/internal/problem"
	"matforge/internal/setup"
	"matforge/internal/ui"
)

type setupOutcome struct {
	result *setup.Result
	err    error
}

// runSetupWithUI runs setup.Build while a progress view follows its events.
func runSetupWithUI(ctx context.Context, p *problem.Problem, opts setup.Options) (*setup.Result, error) {
	events := make(chan setup.Event, 256)
	outcomeCh := make(chan setupOutcome, 1)

	go func() {
		o := opts
		o.Progress = setup.ChannelSink{Ch: events}
		res, err := setup.Build(ctx, p, o)
		outcomeCh <- setupOutcome{result: res, err: err}
		close(events)
	}()

	items := append([]string(nil), p.LibraryPaths()...)
	for _, m := range p.Materials {
		items = append(items, setup.Label(m))
	}
	model := ui.NewProgressModel("setting up "+p.Path, items, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the view may quit early (ctrl+c); Build must never block on a full channel
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

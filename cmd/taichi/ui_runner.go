package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/weiplanet/taichi/internal/pipeline"
	"github.com/weiplanet/taichi/internal/ui"
)

type compileOutcome struct {
	results []pipeline.Result
	err     error
}

// runCompileAllWithUI runs CompileAll behind a Bubble Tea progress view.
func runCompileAllWithUI(ctx context.Context, title string, reqs []*pipeline.Request, jobs int) ([]pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan compileOutcome, 1)

	kernels := make([]string, 0, len(reqs))
	for _, req := range reqs {
		req.Progress = pipeline.ChannelSink{Ch: events}
		kernels = append(kernels, req.Generator.FuncName())
	}

	go func() {
		results, err := pipeline.CompileAll(ctx, reqs, jobs)
		outcomeCh <- compileOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, kernels, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

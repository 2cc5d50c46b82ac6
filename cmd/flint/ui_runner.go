package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"flint/internal/buildpipeline"
	"flint/internal/ui"
)

type buildOutcome struct {
	result *buildpipeline.Result
	err    error
}

// runBuildWithUI runs the pipeline under the interactive progress view. The
// module list is discovered up front so the view can show every row from the
// start; the build then runs in the background and streams events.
func runBuildWithUI(ctx context.Context, title string, req buildpipeline.Request) (*buildpipeline.Result, error) {
	plan, err := buildpipeline.Prepare(req)
	if err != nil {
		return nil, err
	}
	modules := make([]string, 0)
	for _, wave := range plan.Waves() {
		modules = append(modules, wave...)
	}

	sink := buildpipeline.NewChannelSink(256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		reqCopy := req
		reqCopy.Progress = sink
		res, err := buildpipeline.Build(ctx, reqCopy)
		outcomeCh <- buildOutcome{result: res, err: err}
		sink.Close()
	}()

	model := ui.NewProgressModel(title, modules, sink.C)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

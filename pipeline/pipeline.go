package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"analystagent/generator"
	"analystagent/logger"
	"analystagent/sandbox"
	"analystagent/workspace"
)

// Workspace artifacts exchanged between stages.
const (
	RawTableFile = "scraped_table.html"
	CleanCSVFile = "films.csv"
)

// Executor runs one code string to completion inside the sandbox.
type Executor interface {
	Execute(ctx context.Context, req sandbox.ExecutionRequest) sandbox.ExecutionResult
}

// Pipeline drives the fixed three-stage flow: sample the page, clean it to
// CSV, analyze and answer. State moves between stages through workspace
// files, never in memory.
type Pipeline struct {
	gen       generator.Client
	runner    Executor
	ws        *workspace.Workspace
	sourceURL string
	logger    *zap.Logger
	streamer  *logger.StageStreamer
}

func New(gen generator.Client, runner Executor, ws *workspace.Workspace, sourceURL string, zl *zap.Logger, streamer *logger.StageStreamer) *Pipeline {
	return &Pipeline{
		gen:       gen,
		runner:    runner,
		ws:        ws,
		sourceURL: sourceURL,
		logger:    zl,
		streamer:  streamer,
	}
}

type stage struct {
	name     string
	artifact string // expected workspace file; empty for the final stage
	context  string
	task     string
}

func (p *Pipeline) stages(question string) []stage {
	return []stage{
		{
			name:     "sampler",
			artifact: RawTableFile,
			task: fmt.Sprintf(
				"Download the page at '%s' using requests with a 'User-Agent' header. "+
					"Find the main data table (the one with 'Rank' and 'Title' in its headers). "+
					"Save the full outer HTML of this table to '%s/%s'.",
				p.sourceURL, sandbox.MountPath, RawTableFile),
		},
		{
			name:     "scraper",
			artifact: CleanCSVFile,
			context:  fmt.Sprintf("The sampler stage saved the raw table HTML to '%s/%s'.", sandbox.MountPath, RawTableFile),
			task: fmt.Sprintf(
				"Read the HTML from '%s/%s'. Parse it to a pandas DataFrame. "+
					"CRITICAL: Before saving, you must aggressively clean the 'Worldwide gross' column. "+
					"First, remove specific leading footnote characters that are sometimes attached to the numbers (e.g., 'T', 'F', 'SM', 'F8'). "+
					"After removing those, then remove all other non-numeric characters like '$', ',', '#', '[', ']', and extra spaces. "+
					"Finally, save the fully cleaned DataFrame (Rank, Peak, Title, Worldwide gross, Year) to a CSV file at '%s/%s'.",
				sandbox.MountPath, RawTableFile, sandbox.MountPath, CleanCSVFile),
		},
		{
			name:    "analysis",
			context: fmt.Sprintf("The scraper stage saved the cleaned table to '%s/%s'.", sandbox.MountPath, CleanCSVFile),
			task: fmt.Sprintf(
				"The film data is at '%s/%s'. Load it into a pandas DataFrame. "+
					"The columns should already be clean, but as a safeguard, ensure 'Worldwide gross', 'Year', and 'Peak' are numeric types (`pd.to_numeric` with `errors='coerce'`). Drop any rows with NaN values. "+
					"The column with the film names is 'Title'. "+
					"Now, write a single script to produce the final answers for the user's request.\n\n"+
					"User Request:\n---\n%s\n---\n"+
					"The script's final output to stdout MUST be a single line containing a valid JSON array with exactly 4 elements matching the user's questions. "+
					"The 4th element must be a base64-encoded PNG image as a data URI string.",
				sandbox.MountPath, CleanCSVFile, question),
		},
	}
}

// Run executes the full pipeline for one question and returns the final
// JSON array verbatim. The first failing stage aborts the run; no stage is
// ever retried.
func (p *Pipeline) Run(ctx context.Context, question string) (json.RawMessage, error) {
	traceID := uuid.New().String()

	if err := p.ws.Reset(RawTableFile, CleanCSVFile); err != nil {
		return nil, fmt.Errorf("failed to reset workspace: %w", err)
	}

	var lastStdout string
	for _, st := range p.stages(question) {
		p.streamer.Log(zapcore.InfoLevel, traceID, st.name, "stage started", nil)

		code, err := p.gen.Generate(ctx, buildPrompt(st.task, st.context))
		if err != nil {
			p.streamer.Log(zapcore.ErrorLevel, traceID, st.name, "code generation failed", map[string]any{"error": err.Error()})
			return nil, fmt.Errorf("stage %s: code generation failed: %w", st.name, err)
		}

		res := p.runner.Execute(ctx, sandbox.ExecutionRequest{
			Code:          code,
			WorkspacePath: p.ws.Dir(),
		})

		// Any stderr output fails the stage, even on exit code 0. A script
		// that merely warns is indistinguishable from one that broke.
		if res.Stderr != "" {
			p.streamer.Log(zapcore.ErrorLevel, traceID, st.name, "stage failed", map[string]any{
				"stderr":    strings.TrimSpace(res.Stderr),
				"exit_code": res.ExitCode,
				"timed_out": res.TimedOut,
			})
			return nil, fmt.Errorf("stage %s failed: %s", st.name, strings.TrimSpace(res.Stderr))
		}
		if st.artifact != "" && !p.ws.Has(st.artifact) {
			p.streamer.Log(zapcore.ErrorLevel, traceID, st.name, "expected artifact missing", map[string]any{"artifact": st.artifact})
			return nil, fmt.Errorf("stage %s failed to create %s", st.name, st.artifact)
		}

		p.streamer.Log(zapcore.InfoLevel, traceID, st.name, "stage completed", map[string]any{"exit_code": res.ExitCode})
		lastStdout = res.Stdout
	}

	answer, err := parseAnswer(lastStdout)
	if err != nil {
		p.streamer.Log(zapcore.ErrorLevel, traceID, "analysis", "failed to parse final answer", map[string]any{"stdout": lastStdout})
		return nil, err
	}

	p.logger.Info("Pipeline completed", zap.String("traceID", traceID))
	return answer, nil
}

// parseAnswer validates the final stage's stdout as a single-line JSON
// array and returns it verbatim.
func parseAnswer(stdout string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(stdout)
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &elems); err != nil {
		return nil, fmt.Errorf("failed to parse the final JSON array from the analysis output: %w", err)
	}
	return json.RawMessage(trimmed), nil
}

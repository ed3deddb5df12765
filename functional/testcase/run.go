package testcase

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/bradyops/brady/functional/servers/openai"
	"github.com/bradyops/brady/pkg/cli"
	"github.com/bradyops/brady/pkg/dataset"
	"github.com/bradyops/brady/pkg/eval"
	"github.com/bradyops/brady/pkg/results"
	"github.com/bradyops/brady/pkg/util"
)

const runTimeout = 2 * time.Minute

// Runner executes a TestCase
type Runner struct {
	tc *TestCase
	t  *testing.T

	server  *openai.MockOpenAIServer
	tempDir string
}

// Run executes the test case and checks every assertion
func (r *Runner) Run() {
	r.t.Helper()

	r.setupTempDir()
	r.startServer()
	r.configureEnv()

	datasetPath := r.writeDataset()
	ctx := r.execute(datasetPath)

	for _, a := range r.tc.assertions {
		a.Assert(r.t, ctx)
	}
}

func (r *Runner) setupTempDir() {
	r.t.Helper()
	r.tempDir = r.t.TempDir()
}

func (r *Runner) startServer() {
	r.t.Helper()

	r.server = openai.NewMockOpenAIServer()
	if _, err := r.server.Start(); err != nil {
		r.t.Fatalf("failed to start mock model server: %v", err)
	}
	r.t.Cleanup(func() {
		if err := r.server.Stop(); err != nil {
			r.t.Logf("failed to stop mock model server: %v", err)
		}
	})

	if r.tc.agent != nil {
		r.tc.agent.register(r.server)
	}
	if r.tc.judge != nil {
		r.tc.judge.register(r.server)
	}
}

// configureEnv points both the agent and the judge at the mock server and
// isolates the run from any user config.
func (r *Runner) configureEnv() {
	r.t.Setenv("HOME", r.tempDir)
	r.t.Setenv("OPENAI_API_KEY", "")
	r.t.Setenv("BRADY_AGENT_BASEURL", r.server.URL())
	r.t.Setenv("BRADY_AGENT_APIKEY", "functional-agent")
	r.t.Setenv("BRADY_JUDGE_BASEURL", r.server.URL())
	r.t.Setenv("BRADY_JUDGE_APIKEY", "functional-judge")
}

func (r *Runner) writeDataset() string {
	r.t.Helper()

	ds := dataset.Dataset{
		TypeMeta: util.TypeMeta{
			APIVersion: util.APIVersionV1Alpha1,
			Kind:       dataset.KindDataset,
		},
		Metadata: util.ObjectMeta{Name: "functional"},
		Cases:    r.tc.cases,
	}

	data, err := yaml.Marshal(ds)
	if err != nil {
		r.t.Fatalf("failed to marshal dataset: %v", err)
	}

	path := filepath.Join(r.tempDir, "dataset.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		r.t.Fatalf("failed to write dataset: %v", err)
	}

	return path
}

func (r *Runner) execute(datasetPath string) *RunContext {
	r.t.Helper()

	resultsFile := filepath.Join(r.tempDir, "results.json")
	args := append([]string{
		"eval", "run", datasetPath,
		"--results-file", resultsFile,
		"--env-file", filepath.Join(r.tempDir, ".env"),
	}, r.tc.args...)

	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		r.t.Fatalf("brady eval run timed out after %s", runTimeout)
	}

	rc := &RunContext{
		Output:   out.String(),
		Stderr:   errOut.String(),
		Err:      err,
		ExitCode: exitCode(err),
		Server:   r.server,
	}

	if run, loadErr := results.Load(resultsFile); loadErr == nil {
		rc.Results = run
	} else {
		r.t.Logf("no results file: %v", loadErr)
	}

	if r.t.Failed() || testing.Verbose() {
		r.t.Logf("output:\n%s", rc.Output)
		if rc.Stderr != "" {
			r.t.Logf("stderr:\n%s", rc.Stderr)
		}
	}

	return rc
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// RunContext holds everything assertions may inspect after a run
type RunContext struct {
	Output   string
	Stderr   string
	Err      error
	ExitCode int
	Results  *eval.RunResult
	Server   *openai.MockOpenAIServer
}

// Case returns the result for a case id, or nil
func (rc *RunContext) Case(id string) *eval.EvalResult {
	if rc.Results == nil {
		return nil
	}
	for _, res := range rc.Results.Results {
		if res != nil && res.CaseID == id {
			return res
		}
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/remote"
)

// isolate runs the test in an empty directory with no brady variables set.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, name := range []string{"GCP_PROJECT_ID", "REGION", "AGENT_ID", "PORT", "OPENAI_API_KEY", "HOME"} {
		t.Setenv(name, "")
	}
	t.Setenv("HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, agent.BradyModel, cfg.Agent.Model)
	assert.Equal(t, agent.BradyInstruction, cfg.Agent.Instruction)
	assert.Nil(t, cfg.Agent.Temperature)
	assert.Equal(t, agent.DefaultJudgeModel, cfg.Judge.Model)
	require.NotNil(t, cfg.Judge.Temperature)
	assert.Equal(t, 0.0, *cfg.Judge.Temperature)
	assert.Equal(t, 1, cfg.Run.Concurrency)
	assert.Equal(t, remote.DefaultCallTimeout, cfg.Run.CallTimeout)
	assert.Equal(t, remote.DefaultMaxAttempts, cfg.Run.MaxAttempts)
	assert.Equal(t, agent.DefaultMaxToolRounds, cfg.Run.MaxToolRounds)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(dir, "brady.yaml"), `
agent:
  model: gpt-4o-mini
  baseURL: http://localhost:9999/v1
  temperature: 0.2
judge:
  model: judge-model
run:
  concurrency: 4
  callTimeout: 5s
server:
  port: 9090
`)

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Agent.Model)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Agent.BaseURL)
	require.NotNil(t, cfg.Agent.Temperature)
	assert.Equal(t, 0.2, *cfg.Agent.Temperature)
	assert.Equal(t, "judge-model", cfg.Judge.Model)
	assert.Equal(t, 4, cfg.Run.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Run.CallTimeout)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadExplicitConfigFileMissing(t *testing.T) {
	dir := isolate(t)

	_, err := Load(Options{ConfigFile: filepath.Join(dir, "nope.yaml")})
	assert.Error(t, err)
}

func TestLoadEnvironment(t *testing.T) {
	tt := map[string]struct {
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		"prefixed": {
			env: map[string]string{"BRADY_AGENT_MODEL": "env-model", "BRADY_RUN_CONCURRENCY": "3"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env-model", cfg.Agent.Model)
				assert.Equal(t, 3, cfg.Run.Concurrency)
			},
		},
		"legacy names": {
			env: map[string]string{"GCP_PROJECT_ID": "proj", "REGION": "europe-west1", "AGENT_ID": "projects/p/locations/l/reasoningEngines/1", "PORT": "5000"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "proj", cfg.GCP.ProjectID)
				assert.Equal(t, "europe-west1", cfg.GCP.Location)
				assert.Equal(t, "projects/p/locations/l/reasoningEngines/1", cfg.GCP.AgentID)
				assert.Equal(t, 5000, cfg.Server.Port)
			},
		},
		"prefixed wins over legacy": {
			env: map[string]string{"PORT": "5000", "BRADY_SERVER_PORT": "6000"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6000, cfg.Server.Port)
			},
		},
		"shared api key": {
			env: map[string]string{"OPENAI_API_KEY": "sk-shared", "BRADY_JUDGE_APIKEY": "sk-judge"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "sk-shared", cfg.Agent.APIKey)
				assert.Equal(t, "sk-judge", cfg.Judge.APIKey)
			},
		},
		"agent temperature": {
			env: map[string]string{"BRADY_AGENT_TEMPERATURE": "0.7"},
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Agent.Temperature)
				assert.Equal(t, 0.7, *cfg.Agent.Temperature)
			},
		},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(Options{})
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)

	writeFile(t, filepath.Join(dir, ".env"), "REGION=asia-east1\nBRADY_JUDGE_MODEL=dotenv-judge\n")
	t.Setenv("REGION", "")
	require.NoError(t, os.Unsetenv("REGION"))
	t.Cleanup(func() {
		_ = os.Unsetenv("REGION")
		_ = os.Unsetenv("BRADY_JUDGE_MODEL")
	})

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "asia-east1", cfg.GCP.Location)
	assert.Equal(t, "dotenv-judge", cfg.Judge.Model)
}

func TestLoadFlagsOverride(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "brady.yaml"), "run:\n  concurrency: 2\n")
	t.Setenv("BRADY_RUN_CONCURRENCY", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", 1, "")
	require.NoError(t, flags.Parse([]string{"--concurrency", "8"}))

	cfg, err := Load(Options{Flags: map[string]*pflag.Flag{
		"run.concurrency": flags.Lookup("concurrency"),
		"judge.model":     nil,
	}})
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Run.Concurrency)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Agent:  ModelConfig{Model: "m", BaseURL: "http://x/v1", APIKey: "k", Auth: remote.AuthAPIKey},
			Judge:  ModelConfig{Model: "j", Auth: remote.AuthGoogle},
			GCP:    GCPConfig{ProjectID: "p", Location: "us-central1", AgentID: "projects/p/reasoningEngines/1"},
			Run:    RunConfig{Concurrency: 1},
			Server: ServerConfig{Port: 8080, MaxSessions: 10},
		}
	}

	tt := map[string]struct {
		mutate       func(c *Config)
		scopes       []Scope
		wantProblems []string
	}{
		"valid": {
			mutate: func(*Config) {},
			scopes: []Scope{ScopeAgent, ScopeJudge, ScopeServer, ScopeSmoke},
		},
		"missing agent fields reported together": {
			mutate: func(c *Config) { c.Agent = ModelConfig{} },
			scopes: []Scope{ScopeAgent},
			wantProblems: []string{
				"missing agent.model",
				"missing agent.apiKey",
				"missing agent.baseURL",
			},
		},
		"google auth needs project": {
			mutate:       func(c *Config) { c.GCP.ProjectID = "" },
			scopes:       []Scope{ScopeJudge},
			wantProblems: []string{"missing judge.baseURL or gcp.projectID and gcp.location"},
		},
		"unknown auth": {
			mutate:       func(c *Config) { c.Judge.Auth = "basic" },
			scopes:       []Scope{ScopeJudge},
			wantProblems: []string{`unknown judge.auth "basic"`},
		},
		"smoke needs agent id": {
			mutate:       func(c *Config) { c.GCP.AgentID = "" },
			scopes:       []Scope{ScopeSmoke},
			wantProblems: []string{"missing gcp.agentID (AGENT_ID)"},
		},
		"unchecked scope is ignored": {
			mutate: func(c *Config) { c.GCP.AgentID = "" },
			scopes: []Scope{ScopeAgent},
		},
		"server port": {
			mutate:       func(c *Config) { c.Server.Port = 0 },
			scopes:       []Scope{ScopeServer},
			wantProblems: []string{"server.port 0 is out of range"},
		},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate(tc.scopes...)
			if len(tc.wantProblems) == 0 {
				assert.NoError(t, err)
				return
			}

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.wantProblems, cfgErr.Problems)
		})
	}
}

func TestEndpointsAndPolicy(t *testing.T) {
	cfg := &Config{
		Agent: ModelConfig{Model: "agent-m", Auth: remote.AuthGoogle},
		Judge: ModelConfig{Model: "judge-m", BaseURL: "http://judge/v1", APIKey: "k"},
		GCP:   GCPConfig{ProjectID: "p", Location: "us-central1"},
		Run:   RunConfig{MaxAttempts: 5, CallTimeout: 10 * time.Second},
	}

	ep := cfg.AgentEndpoint()
	assert.Equal(t, "agent-m", ep.Model)
	assert.Equal(t, remote.VertexOpenAIBaseURL("p", "us-central1"), ep.ResolvedBaseURL())

	assert.Equal(t, "http://judge/v1", cfg.JudgeEndpoint().ResolvedBaseURL())

	p := cfg.RetryPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 10*time.Second, p.CallTimeout)

	jc := cfg.JudgeConfig()
	assert.Equal(t, "judge-m", jc.Endpoint.Model)
	require.NotNil(t, jc.Temperature)
	assert.Equal(t, 0.0, *jc.Temperature)
}

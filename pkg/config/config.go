// Package config loads brady settings from flags, the environment, a .env
// file and an optional brady.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/utils/ptr"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/llmjudge"
	"github.com/bradyops/brady/pkg/remote"
)

const (
	EnvPrefix      = "BRADY"
	DefaultEnvFile = ".env"
	DefaultPort    = 8080
)

// Config stores all configuration of the application.
type Config struct {
	Agent  ModelConfig  `mapstructure:"agent"`
	Judge  ModelConfig  `mapstructure:"judge"`
	GCP    GCPConfig    `mapstructure:"gcp"`
	Run    RunConfig    `mapstructure:"run"`
	Server ServerConfig `mapstructure:"server"`
}

// ModelConfig points at an OpenAI-compatible chat completions model.
type ModelConfig struct {
	Model       string   `mapstructure:"model"`
	BaseURL     string   `mapstructure:"baseURL"`
	APIKey      string   `mapstructure:"apiKey"`
	Auth        string   `mapstructure:"auth"` // "apikey" or "google"
	Instruction string   `mapstructure:"instruction"`
	Temperature *float64 `mapstructure:"temperature"`
}

// GCPConfig locates the hosted agent runtime.
type GCPConfig struct {
	ProjectID string `mapstructure:"projectID"`
	Location  string `mapstructure:"location"`
	AgentID   string `mapstructure:"agentID"` // full reasoning engine resource name
}

type RunConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	CallTimeout   time.Duration `mapstructure:"callTimeout"`
	MaxAttempts   int           `mapstructure:"maxAttempts"`
	MaxToolRounds int           `mapstructure:"maxToolRounds"`
	Output        string        `mapstructure:"output"`
}

type ServerConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	RequestsPerMinute int    `mapstructure:"requestsPerMinute"`
	Burst             int    `mapstructure:"burst"`
	MaxSessions       int    `mapstructure:"maxSessions"`
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit config path. When empty, brady.yaml is
	// searched for in the working directory and $HOME/.brady.
	ConfigFile string
	// EnvFile is loaded into the process environment without overriding
	// variables that are already set. A missing file is not an error.
	EnvFile string
	// Flags maps config keys to command-line flags that override them.
	Flags map[string]*pflag.Flag
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.model", agent.BradyModel)
	v.SetDefault("agent.baseURL", "")
	v.SetDefault("agent.apiKey", "")
	v.SetDefault("agent.auth", remote.AuthAPIKey)
	v.SetDefault("agent.instruction", agent.BradyInstruction)

	v.SetDefault("judge.model", agent.DefaultJudgeModel)
	v.SetDefault("judge.baseURL", "")
	v.SetDefault("judge.apiKey", "")
	v.SetDefault("judge.auth", remote.AuthAPIKey)
	v.SetDefault("judge.temperature", 0.0)

	v.SetDefault("gcp.projectID", "")
	v.SetDefault("gcp.location", "us-central1")
	v.SetDefault("gcp.agentID", "")

	v.SetDefault("run.concurrency", 1)
	v.SetDefault("run.callTimeout", remote.DefaultCallTimeout)
	v.SetDefault("run.maxAttempts", remote.DefaultMaxAttempts)
	v.SetDefault("run.maxToolRounds", agent.DefaultMaxToolRounds)
	v.SetDefault("run.output", "text")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.requestsPerMinute", 60)
	v.SetDefault("server.burst", 10)
	v.SetDefault("server.maxSessions", 1000)
}

// envAliases binds keys to extra environment names, checked after the
// BRADY_ one. Keys without a default must be listed to be read from the
// environment at all.
var envAliases = map[string][]string{
	"gcp.projectID":     {"GCP_PROJECT_ID"},
	"gcp.location":      {"REGION"},
	"gcp.agentID":       {"AGENT_ID"},
	"server.port":       {"PORT"},
	"agent.apiKey":      {"OPENAI_API_KEY"},
	"judge.apiKey":      {"OPENAI_API_KEY"},
	"agent.temperature": nil,
}

// Load reads configuration. Precedence, highest first: flags, environment
// (BRADY_AGENT_MODEL etc., then legacy names), config file, defaults.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	v := viper.New()
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.brady")
		v.SetConfigName("brady")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

// AgentEndpoint returns the endpoint of the agent under test.
func (c *Config) AgentEndpoint() remote.Endpoint {
	return c.endpoint(c.Agent)
}

// JudgeEndpoint returns the endpoint of the judge model.
func (c *Config) JudgeEndpoint() remote.Endpoint {
	return c.endpoint(c.Judge)
}

func (c *Config) endpoint(m ModelConfig) remote.Endpoint {
	return remote.Endpoint{
		Model:     m.Model,
		BaseURL:   m.BaseURL,
		APIKey:    m.APIKey,
		Auth:      m.Auth,
		ProjectID: c.GCP.ProjectID,
		Location:  c.GCP.Location,
	}
}

// RetryPolicy applies the run settings on top of the default policy.
func (c *Config) RetryPolicy() remote.Policy {
	p := remote.DefaultPolicy()
	if c.Run.MaxAttempts > 0 {
		p.MaxAttempts = c.Run.MaxAttempts
	}
	if c.Run.CallTimeout > 0 {
		p.CallTimeout = c.Run.CallTimeout
	}
	return p
}

// JudgeConfig returns the settings for llmjudge.NewFromConfig.
func (c *Config) JudgeConfig() llmjudge.LLMJudgeConfig {
	return llmjudge.LLMJudgeConfig{
		Endpoint:    c.JudgeEndpoint(),
		Temperature: ptr.To(ptr.Deref(c.Judge.Temperature, 0)),
		Retry:       c.RetryPolicy(),
	}
}

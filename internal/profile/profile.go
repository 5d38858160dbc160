package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the agent server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where the agent stores its own data
	DSN string
	// Driver is the database driver (postgres or sqlite)
	Driver string
	// Version is the current version of the server
	Version string

	// AI configuration
	AIBaseURL        string // AGENTD_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey         string // AGENTD_AI_API_KEY
	AIChatModel      string // AGENTD_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIEmbeddingModel string // AGENTD_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDim   int    // AGENTD_AI_EMBEDDING_DIM (default: 1536)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if a completion/embedding provider is
// configured. The base URL carries a default, so only the API key counts.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// FromViper loads configuration from viper-bound flags and AGENTD_* environment variables.
func (p *Profile) FromViper(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8230)
	v.SetDefault("driver", "sqlite")
	v.SetDefault("ai-base-url", "https://api.openai.com/v1")
	v.SetDefault("ai-chat-model", "gpt-4o-mini")
	v.SetDefault("ai-embedding-model", "text-embedding-3-small")
	v.SetDefault("ai-embedding-dim", 1536)

	p.Mode = v.GetString("mode")
	p.Addr = v.GetString("addr")
	p.Port = v.GetInt("port")
	p.Data = v.GetString("data")
	p.DSN = v.GetString("dsn")
	p.Driver = v.GetString("driver")
	p.AIBaseURL = v.GetString("ai-base-url")
	p.AIAPIKey = v.GetString("ai-api-key")
	p.AIChatModel = v.GetString("ai-chat-model")
	p.AIEmbeddingModel = v.GetString("ai-embedding-model")
	p.AIEmbeddingDim = v.GetInt("ai-embedding-dim")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if a relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case the user supplies one.
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("agentd_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	return nil
}

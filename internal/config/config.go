package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	DefaultLLM string                    `toml:"default_llm"`
	LLMs       map[string]*LLMConfig     `toml:"llm"`
	Gateway    GatewayConfig             `toml:"gateway"`
	Channels   map[string]*ChannelConfig `toml:"channel"`
	DB         DBConfig                  `toml:"db"`
	Retriever  RetrieverConfig           `toml:"retriever"`
	Memory     MemoryConfig              `toml:"memory"`
	Services   ServicesConfig            `toml:"services"`
	Trace      TraceConfig               `toml:"trace"`
}

type MemoryConfig struct {
	Compaction CompactionConfig `toml:"compaction"`
}

// CompactionConfig controls summarization of old conversation turns.
type CompactionConfig struct {
	Enabled       bool `toml:"enabled"`
	TurnThreshold int  `toml:"turn_threshold"`
	KeepRecent    int  `toml:"keep_recent"`
}

type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type GatewayConfig struct {
	Addr            string `toml:"addr"`
	SessionTTLHours int    `toml:"session_ttl_hours"`
}

type ChannelConfig struct {
	Enabled  bool              `toml:"enabled"`
	Type     string            `toml:"type"`
	Settings map[string]string `toml:"settings"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

// RetrieverConfig controls document ingestion and search.
type RetrieverConfig struct {
	DocsPath     string  `toml:"docs_path"`
	IndexPath    string  `toml:"index_path"`
	Collection   string  `toml:"collection"`
	ChunkSize    int     `toml:"chunk_size"`
	ChunkOverlap int     `toml:"chunk_overlap"`
	TopK         int     `toml:"top_k"`
	VectorWeight float32 `toml:"vector_weight"`
	FTSWeight    float32 `toml:"fts_weight"`

	Embedding EmbeddingConfig `toml:"embedding"`
}

type EmbeddingConfig struct {
	LLM        string `toml:"llm"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	CacheSize  int    `toml:"cache_size"`
}

type ServicesConfig struct {
	Brave BraveConfig `toml:"brave"`
}

type BraveConfig struct {
	APIKey string `toml:"api_key"`
}

type TraceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

func Load() (*Config, error) {
	// A .env next to the working directory overlays the process environment,
	// never overriding variables that are already set.
	_ = godotenv.Load()

	cfg := &Config{
		DefaultLLM: "openai",
		LLMs: map[string]*LLMConfig{
			"openai": {
				Model:   "gpt-4o-mini",
				BaseURL: "https://api.openai.com/v1",
			},
		},
		Gateway: GatewayConfig{
			Addr:            ":8484",
			SessionTTLHours: 24,
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
		Retriever: RetrieverConfig{
			DocsPath:     "./data",
			IndexPath:    defaultIndexPath(),
			Collection:   "travel_docs",
			ChunkSize:    512,
			ChunkOverlap: 64,
			TopK:         5,
			VectorWeight: 0.7,
			FTSWeight:    0.3,
			Embedding: EmbeddingConfig{
				LLM:        "openai",
				Model:      "text-embedding-3-small",
				Dimensions: 512,
				CacheSize:  10000,
			},
		},
		Memory: MemoryConfig{
			Compaction: CompactionConfig{
				Enabled:       true,
				TurnThreshold: 20,
				KeepRecent:    5,
			},
		},
	}

	path := configPath()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets API keys come from the environment (or .env) without
// living in the config file.
func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		for _, l := range c.LLMs {
			if l.APIKey == "" {
				l.APIKey = key
			}
		}
	}
	if key := os.Getenv("BRAVE_API_KEY"); key != "" && c.Services.Brave.APIKey == "" {
		c.Services.Brave.APIKey = key
	}
}

func configPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "voyago", "config.toml")
}

func defaultDBPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "voyago", "voyago.db")
}

func defaultIndexPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "voyago", "index")
}

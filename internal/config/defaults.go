package config

// Default system prompt used when the config does not set one. Citation
// markers in answers rely on it asking the model to reference excerpts as [1], [2], etc.
const defaultSystemPrompt = "You are a research assistant helping analyze documents on a canvas. " +
	"When answering questions, reference the provided excerpts using [1], [2], etc. " +
	"Be precise and cite your sources."

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tsunagu/data/db/chat.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/tsunagu/data/indices/vectors"
	}
	if cfg.Storage.MessageIndexPath == "" {
		cfg.Storage.MessageIndexPath = "/usr/local/var/tsunagu/data/indices/messages"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/tsunagu/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxContextNodes == 0 {
		cfg.Retrieval.MaxContextNodes = 15
	}
	if cfg.Retrieval.HistoryLimit == 0 {
		cfg.Retrieval.HistoryLimit = 6
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3.2"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.LLM.SystemPrompt == "" {
		cfg.LLM.SystemPrompt = defaultSystemPrompt
	}
}

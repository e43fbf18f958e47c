package config

// Provider types
const (
	ProviderOpenAI    = "openai"
	ProviderLangChain = "langchain"
	ProviderGemini    = "gemini"
)

// Storage drivers
const (
	StorageSQLite = "sqlite"
)

// Extraction prompt delimiters. The prompt ends with an open backtick, the
// request asks for the same backtick as suffix and stops on it, so the model
// only writes the JSON body.
const (
	ExtractionSuffix = "`"
	ExtractionStop   = "`"
)

// Extraction record statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MCP tool names
const (
	ToolObjectFromType = "object_from_type"
)

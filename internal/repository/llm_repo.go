package repository

import "context"

// StructuredRequest asks the language model for output conforming to a JSON schema.
type StructuredRequest struct {
	System     string
	Prompt     string
	SchemaName string
	Schema     map[string]any
}

// TextRequest asks the language model for free text.
type TextRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// LanguageModel is the text-generation collaborator used by the analysis step.
type LanguageModel interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	// GenerateStructured returns the raw JSON document produced for the schema.
	// An empty string means the model produced no structured result.
	GenerateStructured(ctx context.Context, req StructuredRequest) (string, error)
}

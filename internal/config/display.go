package config

import "strings"

// embeddingModelNames maps embedding model IDs to human-readable
// labels for CLI output.
var embeddingModelNames = map[string]string{
	"google/gemini-embedding-001":   "Gemini Embedding",
	"openai/text-embedding-3-small": "OpenAI Embedding Small",
	"openai/text-embedding-3-large": "OpenAI Embedding Large",
	"openai/text-embedding-ada-002": "OpenAI Ada",
	"qwen/qwen3-embedding-8b":       "Qwen Embedding",
}

var chatModelNames = map[string]string{
	"google/gemini-2.5-flash":      "Gemini 2.5 Flash",
	"google/gemini-2.5-flash-lite": "Gemini 2.5 Flash Lite",
	"google/gemini-2.0-flash":      "Gemini 2.0 Flash",
	"anthropic/claude-3.5-sonnet":  "Claude 3.5 Sonnet",
	"anthropic/claude-3-haiku":     "Claude 3 Haiku",
	"openai/gpt-4o":                "GPT-4o",
	"openai/gpt-4o-mini":           "GPT-4o Mini",
}

// ModelDisplayName returns a human-readable label for a model ID.
// Unknown IDs fall back to a title-cased form of the last path
// segment.
func ModelDisplayName(modelID string) string {
	if name, ok := embeddingModelNames[modelID]; ok {
		return name
	}
	if name, ok := chatModelNames[modelID]; ok {
		return name
	}

	last := modelID
	if idx := strings.LastIndex(modelID, "/"); idx >= 0 {
		last = modelID[idx+1:]
	}
	words := strings.Split(strings.ReplaceAll(last, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ModelID resolves a display name back to its model ID. Inputs that
// are not known display names are returned unchanged.
func ModelID(displayName string) string {
	for id, name := range embeddingModelNames {
		if name == displayName {
			return id
		}
	}
	for id, name := range chatModelNames {
		if name == displayName {
			return id
		}
	}
	return displayName
}

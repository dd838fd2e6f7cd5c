// Copyright (c) Microsoft. All rights reserved.

package agentserver

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Environment variables recognized by [ConfigFromEnv].
const (
	EnvModelDeployment   = "AZURE_AI_MODEL_DEPLOYMENT_NAME"
	EnvProjectEndpoint   = "AZURE_AI_PROJECT_ENDPOINT"
	EnvMaxTurns          = "AGENT_MAX_TURNS"
	EnvChatHistoryLength = "AGENT_CHAT_HISTORY_LENGTH"
	EnvTokenScopes       = "AGENT_TOKEN_SCOPES"
)

// Defaults applied when the corresponding variable is unset or invalid.
const (
	DefaultMaxTurns          = 10
	DefaultChatHistoryLength = 20
	DefaultModel             = "gpt-5"
	DefaultTokenScope        = "https://cognitiveservices.azure.com/.default"
)

// Config holds the invocation runtime settings.
type Config struct {
	// Model is the chat model deployment name.
	Model string

	// ProjectEndpoint is the backend service endpoint.
	ProjectEndpoint string

	// MaxTurns is the hard cap on loop iterations per invocation.
	MaxTurns int

	// ChatHistoryLength is the number of most-recent items sent to the
	// backend per call.
	ChatHistoryLength int

	// TokenScopes are the credential scopes for backend authentication.
	TokenScopes []string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Model:             DefaultModel,
		MaxTurns:          DefaultMaxTurns,
		ChatHistoryLength: DefaultChatHistoryLength,
		TokenScopes:       []string{DefaultTokenScope},
	}
}

// ConfigFromEnv resolves a [Config] from environment variables, falling back
// to defaults for unset or unparseable values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv(EnvModelDeployment); v != "" {
		cfg.Model = v
	}
	cfg.ProjectEndpoint = os.Getenv(EnvProjectEndpoint)
	cfg.MaxTurns = envInt(EnvMaxTurns, cfg.MaxTurns)
	cfg.ChatHistoryLength = envInt(EnvChatHistoryLength, cfg.ChatHistoryLength)
	if v := os.Getenv(EnvTokenScopes); v != "" {
		var scopes []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		if len(scopes) > 0 {
			cfg.TokenScopes = scopes
		}
	}
	return cfg
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer env value", "key", key, "value", v)
		return fallback
	}
	return n
}

// Copyright (c) Microsoft. All rights reserved.

package agentserver_test

import (
	"testing"

	as "github.com/microsoft/agent-server/go/agentserver"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		as.EnvModelDeployment, as.EnvProjectEndpoint,
		as.EnvMaxTurns, as.EnvChatHistoryLength, as.EnvTokenScopes,
	} {
		t.Setenv(key, "")
	}

	cfg := as.ConfigFromEnv()
	if cfg.Model != as.DefaultModel {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.MaxTurns != as.DefaultMaxTurns {
		t.Errorf("MaxTurns = %d", cfg.MaxTurns)
	}
	if cfg.ChatHistoryLength != as.DefaultChatHistoryLength {
		t.Errorf("ChatHistoryLength = %d", cfg.ChatHistoryLength)
	}
	if len(cfg.TokenScopes) != 1 || cfg.TokenScopes[0] != as.DefaultTokenScope {
		t.Errorf("TokenScopes = %v", cfg.TokenScopes)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv(as.EnvModelDeployment, "gpt-4o")
	t.Setenv(as.EnvProjectEndpoint, "https://example.services.ai.azure.com/openai/v1")
	t.Setenv(as.EnvMaxTurns, "5")
	t.Setenv(as.EnvChatHistoryLength, "8")
	t.Setenv(as.EnvTokenScopes, "scope-a, scope-b")

	cfg := as.ConfigFromEnv()
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.ProjectEndpoint != "https://example.services.ai.azure.com/openai/v1" {
		t.Errorf("ProjectEndpoint = %q", cfg.ProjectEndpoint)
	}
	if cfg.MaxTurns != 5 || cfg.ChatHistoryLength != 8 {
		t.Errorf("MaxTurns = %d, ChatHistoryLength = %d", cfg.MaxTurns, cfg.ChatHistoryLength)
	}
	if len(cfg.TokenScopes) != 2 || cfg.TokenScopes[0] != "scope-a" || cfg.TokenScopes[1] != "scope-b" {
		t.Errorf("TokenScopes = %v", cfg.TokenScopes)
	}
}

func TestConfigFromEnv_InvalidIntFallsBack(t *testing.T) {
	t.Setenv(as.EnvMaxTurns, "not-a-number")
	t.Setenv(as.EnvChatHistoryLength, "-3")

	cfg := as.ConfigFromEnv()
	if cfg.MaxTurns != as.DefaultMaxTurns {
		t.Errorf("MaxTurns = %d, want default on invalid value", cfg.MaxTurns)
	}
	if cfg.ChatHistoryLength != as.DefaultChatHistoryLength {
		t.Errorf("ChatHistoryLength = %d, want default on non-positive value", cfg.ChatHistoryLength)
	}
}

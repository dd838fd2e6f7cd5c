// Copyright (c) Microsoft. All rights reserved.

// Command sysagent runs the system utility agent against an Azure AI Foundry
// project or any Responses-compatible endpoint.
//
// Usage with Azure AI Foundry (Entra ID auth):
//
//	export AZURE_AI_PROJECT_ENDPOINT=https://<project>.services.ai.azure.com/openai/v1
//	export AZURE_AI_MODEL_DEPLOYMENT_NAME=gpt-5
//	go run .
//
// Usage with key-based auth:
//
//	export AZURE_ENDPOINT=https://<resource>.openai.azure.com/openai/v1
//	export AZURE_OPENAI_API_KEY=<your-key>
//	go run .
//
// Set OTEL_EXPORTER_OTLP_ENDPOINT to export spans, DEBUG=1 for debug logs.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/joho/godotenv"

	as "github.com/microsoft/agent-server/go/agentserver"
	"github.com/microsoft/agent-server/go/responses"
	"github.com/microsoft/agent-server/go/systools"
	"github.com/microsoft/agent-server/go/telemetry"
	"github.com/microsoft/agent-server/go/tokencache"
)

func main() {
	// Load .env file if present (ignored if missing).
	_ = godotenv.Load()

	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx := context.Background()

	tp, shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "sysagent",
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") != "",
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdown(context.Background())

	cfg := as.ConfigFromEnv()
	client := newBackend(cfg)

	registry := as.NewRegistry()
	if err := systools.RegisterAll(registry); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	runner := as.NewRunner(client, registry,
		as.WithInstructions(systools.SystemPrompt),
		as.WithConfig(cfg),
		as.WithTracerProvider(tp),
	)

	fmt.Println("System Utility Agent (type 'quit' to exit)")
	fmt.Println("Tools:", strings.Join(registry.Names(), ", "))
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}

		stream := runner.RunStream(ctx, &as.RunRequest{
			Input: []as.Item{as.NewUserMessage(input)},
		})

		fmt.Print("Agent: ")
		var usage as.Usage
		for {
			event, ok, err := stream.Next(ctx)
			if err != nil {
				log.Printf("\nStream error: %v", err)
				break
			}
			if !ok {
				break
			}
			switch e := event.(type) {
			case as.ResponseTextDeltaEvent:
				fmt.Print(e.Delta)
			case as.ResponseCompletedEvent:
				usage = e.Response.Usage
			}
		}
		stream.Close()
		fmt.Println()
		if usage.TotalTokens > 0 {
			fmt.Printf("  [tokens: %d in, %d out]\n", usage.InputTokens, usage.OutputTokens)
		}
		fmt.Println()
	}
}

// newBackend creates the responses client, choosing Entra ID auth when a
// project endpoint is configured and falling back to key-based auth.
func newBackend(cfg as.Config) *responses.Client {
	if cfg.ProjectEndpoint != "" {
		fmt.Printf("Using Azure AI project: %s\n", cfg.ProjectEndpoint)
		inner, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			log.Fatalf("Failed to create Azure credential: %v", err)
		}
		cred := tokencache.New(inner)
		return responses.New(cfg.ProjectEndpoint,
			responses.WithCredential(cred),
			responses.WithScopes(cfg.TokenScopes...),
		)
	}

	endpoint := os.Getenv("AZURE_ENDPOINT")
	key := os.Getenv("AZURE_OPENAI_API_KEY")
	if endpoint == "" || key == "" {
		log.Fatalf("Set %s, or AZURE_ENDPOINT and AZURE_OPENAI_API_KEY", as.EnvProjectEndpoint)
	}
	fmt.Printf("Using endpoint with key-based auth: %s\n", endpoint)
	opts := []responses.Option{responses.WithAPIKey(key)}
	if v := os.Getenv("OPENAI_API_VERSION"); v != "" {
		opts = append(opts, responses.WithAPIVersion(v))
	}
	return responses.New(endpoint, opts...)
}

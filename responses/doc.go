// Copyright (c) Microsoft. All rights reserved.

// Package responses provides an [agentserver.Backend] implementation for a
// Responses-style chat-completion API, such as an Azure AI Foundry project's
// OpenAI surface.
//
// Create a client and pass it to [agentserver.NewRunner]:
//
//	cred := tokencache.New(inner)
//	client := responses.New(endpoint,
//	    responses.WithCredential(cred),
//	)
//
//	runner := agentserver.NewRunner(client, registry)
//
// # Configuration
//
// Use functional options to configure the client:
//
//   - [WithCredential]: authenticate with a bearer token credential
//     (typically a tokencache.Cache)
//   - [WithScopes]: override the token scopes requested per call
//   - [WithAPIKey]: use key-based auth instead of a credential
//   - [WithHTTPClient]: provide a custom http.Client
//   - [WithHeaders]: add custom headers to every request
//
// # Testing
//
// The client uses an unexported transport interface internally.
// For testing, provide a mock http.Client via [WithHTTPClient]
// with a custom RoundTripper.
package responses

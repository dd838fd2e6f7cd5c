// Copyright (c) Microsoft. All rights reserved.

package responses

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// clientConfig holds resolved configuration for the responses client.
type clientConfig struct {
	httpClient *http.Client
	headers    map[string]string
	apiKey     string
	credential azcore.TokenCredential
	scopes     []string
	apiVersion string
}

// Option configures a responses [Client].
type Option func(*clientConfig)

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) { c.headers = headers }
}

// WithAPIKey enables key-based authentication via the api-key header.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithCredential enables bearer token authentication using the provided
// credential. Pass a tokencache.Cache to get cached, single-flight refresh.
func WithCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.credential = cred }
}

// WithScopes overrides the token scopes requested for each call.
func WithScopes(scopes ...string) Option {
	return func(c *clientConfig) { c.scopes = scopes }
}

// WithAPIVersion sets the api-version query parameter.
func WithAPIVersion(version string) Option {
	return func(c *clientConfig) { c.apiVersion = version }
}

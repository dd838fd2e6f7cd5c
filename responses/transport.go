// Copyright (c) Microsoft. All rights reserved.

package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	as "github.com/microsoft/agent-server/go/agentserver"
)

const defaultScope = "https://cognitiveservices.azure.com/.default"

// transport is an unexported interface for HTTP communication.
// The default implementation uses net/http; tests inject a mock.
type transport interface {
	do(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// httpTransport is the default transport using net/http.
type httpTransport struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	headers    map[string]string
	credential azcore.TokenCredential
	scopes     []string
	apiVersion string
}

func newHTTPTransport(baseURL string, cfg *clientConfig) *httpTransport {
	t := &httpTransport{
		client:     cfg.httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.apiKey,
		headers:    cfg.headers,
		credential: cfg.credential,
		scopes:     cfg.scopes,
		apiVersion: cfg.apiVersion,
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if len(t.scopes) == 0 {
		t.scopes = []string{defaultScope}
	}
	return t
}

func (t *httpTransport) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	u := t.baseURL + path
	if t.apiVersion != "" {
		u += "?api-version=" + url.QueryEscape(t.apiVersion)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	switch {
	case t.credential != nil:
		slog.DebugContext(ctx, "acquiring bearer token for backend call", "scopes", t.scopes)
		token, err := t.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: t.scopes})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", as.ErrCredential, err)
		}
		req.Header.Set("Authorization", "Bearer "+token.Token)
	case t.apiKey != "":
		req.Header.Set("api-key", t.apiKey)
	}

	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = string(body)
	}

	svcErr := &as.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       apiErr.Error.Code,
	}

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		svcErr.Err = as.ErrAuth
	case resp.StatusCode == 400:
		svcErr.Err = as.ErrInvalidRequest
	default:
		svcErr.Err = as.ErrService
	}

	return svcErr
}

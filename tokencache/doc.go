// Copyright (c) Microsoft. All rights reserved.

// Package tokencache provides a concurrency-safe, auto-refreshing cache of
// bearer tokens keyed by logical identity.
//
// [Cache] decorates any [azcore.TokenCredential]: the fast path returns a
// cached token with a shared read lock, and the slow path funnels all racing
// callers for one identity through a single network acquisition. It plugs
// directly into transports that accept an azcore.TokenCredential:
//
//	inner, err := azidentity.NewDefaultAzureCredential(nil)
//	cache := tokencache.New(inner, tokencache.WithIdentity(agentID+"/"+tenantID))
//
//	token, err := cache.GetToken(ctx, policy.TokenRequestOptions{
//	    Scopes: []string{"https://cognitiveservices.azure.com/.default"},
//	})
package tokencache

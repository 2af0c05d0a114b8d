// Package httputil fetches remote layer documents.
//
// # Client
//
// [Client.Fetch] downloads a GeoJSON document over http(s). Transient
// failures (connection errors, 5xx, 429) are retried with exponential
// backoff through [Retry]; a 404 maps to [ErrNotFound] and is not retried.
//
//	client := httputil.NewClient(httputil.WithCache(cache))
//	body, err := client.Fetch(ctx, "https://example.com/cities.geojson", false)
//
// # Caching
//
// [Cache] keeps fetched bodies under ~/.cache/labelpal/sources with a TTL.
// Expired bodies are still served when the server cannot be reached.
// The cache can be cleared with `labelpal cache clear --sources`.
package httputil

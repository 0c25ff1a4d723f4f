package strategy

import (
	"bytes"
	"io"
	"net/http"
)

// Synthetic last-resort responses. The bodies are fixed: the UI layer
// dispatches on the JSON shape to show its offline affordance.
const (
	textOfflineBody = "Offline - resource unavailable"
	jsonOfflineBody = `{"error":"Offline","message":"No cached data available"}`
	htmlOfflineBody = `<!DOCTYPE html>
<html>
<head><title>Offline</title></head>
<body><h1>You are offline</h1><p>This page is not available offline.</p></body>
</html>`
)

func synthetic(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        http.Header{"Content-Type": []string{contentType}},
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: int64(len(body)),
	}
}

func syntheticTextUnavailable() *http.Response {
	return synthetic(http.StatusServiceUnavailable, "text/plain; charset=utf-8", textOfflineBody)
}

func syntheticJSONOffline() *http.Response {
	return synthetic(http.StatusServiceUnavailable, "application/json", jsonOfflineBody)
}

func syntheticHTMLOffline() *http.Response {
	return synthetic(http.StatusServiceUnavailable, "text/html; charset=utf-8", htmlOfflineBody)
}

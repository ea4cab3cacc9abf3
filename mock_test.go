package main

import (
	"io"
	"net/http"
	"strings"
)

// MockHTTPClient lets tests route requests without a network.
type MockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func emptyListResponse() *http.Response {
	return jsonResponse(http.StatusOK, `{"value": []}`)
}

func testClient(client HTTPClient) *AzureClient {
	return &AzureClient{
		Config: Config{
			AccessToken:    "test-token",
			Columns:        columnsFocused,
			MaxConcurrency: 1,
		},
		HTTPClient: client,
	}
}

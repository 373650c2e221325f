// Package e2e drives a running attest server over HTTP with Gherkin
// scenarios. The suite is black-box: it only sees the public API, so it
// can run against a local binary or a deployed environment.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext carries shared state between steps of a scenario: the HTTP
// client, the acting principal, the last response, and the identifiers the
// scenario has created or discovered so far.
type TestContext struct {
	baseURL string
	client  *http.Client

	actor string

	status int
	raw    []byte
	body   any

	applicationID  string
	requirementIDs []string
}

// NewTestContext creates a context bound to the server at baseURL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// GET performs a GET request and captures the response.
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

// POST performs a POST request with a JSON body and captures the response.
func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

// PUT performs a PUT request with a JSON body and captures the response.
func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body)
}

// DELETE performs a DELETE request and captures the response.
func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.actor != "" {
		req.Header.Set("X-Actor", tc.actor)
	}

	res, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	tc.status = res.StatusCode
	tc.raw, err = io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.body = nil
	if len(tc.raw) > 0 {
		var decoded any
		if err := json.Unmarshal(tc.raw, &decoded); err == nil {
			tc.body = decoded
		}
	}
	return nil
}

// GetStatus returns the status code of the last response.
func (tc *TestContext) GetStatus() int {
	return tc.status
}

// GetResponseField resolves a dotted path into the last JSON response.
// Map keys and zero-based array indexes may be mixed, for example
// "fulfillments.0.status" or "counts.fulfilled".
func (tc *TestContext) GetResponseField(path string) (any, error) {
	if tc.body == nil {
		return nil, fmt.Errorf("last response has no JSON body (status %d): %s", tc.status, tc.raw)
	}

	current := tc.body
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, fmt.Errorf("field %q: key %q not present in response", path, segment)
			}
			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, fmt.Errorf("field %q: %q does not index an array of %d elements", path, segment, len(node))
			}
			current = node[index]
		default:
			return nil, fmt.Errorf("field %q: cannot descend into %T at %q", path, current, segment)
		}
	}
	return current, nil
}

// SetActor sets the principal sent as X-Actor on subsequent requests.
func (tc *TestContext) SetActor(actor string) {
	tc.actor = actor
}

// ClearActor drops the acting principal so requests go out anonymous.
func (tc *TestContext) ClearActor() {
	tc.actor = ""
}

// SetApplicationID remembers the application the scenario registered.
func (tc *TestContext) SetApplicationID(appID string) {
	tc.applicationID = appID
}

// GetApplicationID returns the remembered application ID.
func (tc *TestContext) GetApplicationID() string {
	return tc.applicationID
}

// SetRequirementIDs remembers the catalog requirements the scenario works with.
func (tc *TestContext) SetRequirementIDs(ids []string) {
	tc.requirementIDs = ids
}

// GetRequirementIDs returns all remembered requirement IDs.
func (tc *TestContext) GetRequirementIDs() []string {
	return tc.requirementIDs
}

// GetRequirementID returns the n-th remembered requirement, 1-based, matching
// how scenarios number them.
func (tc *TestContext) GetRequirementID(n int) (string, error) {
	if n < 1 || n > len(tc.requirementIDs) {
		return "", fmt.Errorf("requirement %d not known, scenario discovered %d", n, len(tc.requirementIDs))
	}
	return tc.requirementIDs[n-1], nil
}

// Reset clears per-scenario state. Step definitions are registered once per
// worker, so the shared context must start each scenario clean.
func (tc *TestContext) Reset() {
	tc.actor = ""
	tc.status = 0
	tc.raw = nil
	tc.body = nil
	tc.applicationID = ""
	tc.requirementIDs = nil
}

// Cleanup deregisters the scenario's application, if one was registered.
// Errors are ignored; scenarios that already deregistered leave nothing behind.
func (tc *TestContext) Cleanup() {
	if tc.applicationID == "" {
		return
	}
	_ = tc.DELETE("/v1/applications/" + tc.applicationID)
	tc.applicationID = ""
}

package arr

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testAPIKey = "test-api-key"

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   []byte
}

// fakeArr serves canned JSON per "METHOD /path" and records every request.
type fakeArr struct {
	t *testing.T

	mu        sync.Mutex
	responses map[string]interface{}
	requests  []recordedRequest
}

func newFakeArr(t *testing.T) (*fakeArr, *httptest.Server) {
	f := &fakeArr{t: t, responses: make(map[string]interface{})}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeArr) on(method, path string, response interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+path] = response
}

func (f *fakeArr) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	assert.NoError(f.t, err)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		APIKey: r.Header.Get("X-Api-Key"),
		Body:   body,
	})
	response, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		return
	}
	if status, isStatus := response.(int); isStatus {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(f.t, json.NewEncoder(w).Encode(response))
}

// last returns the most recent request for method and path.
func (f *fakeArr) last(method, path string) (recordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method && f.requests[i].Path == path {
			return f.requests[i], true
		}
	}
	return recordedRequest{}, false
}

func (f *fakeArr) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func decodeBody(t *testing.T, req recordedRequest) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	return body
}

var testProfiles = []QualityProfile{
	{ID: 1, Name: "Any"},
	{ID: 4, Name: "HD-1080p"},
}

var testRootFolders = []RootFolder{
	{ID: 1, Path: "/tv"},
	{ID: 2, Path: "/tv2"},
}

var testTags = []Tag{
	{ID: 1, Label: "kids"},
	{ID: 2, Label: "anime"},
}

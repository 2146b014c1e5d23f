package pipeline_test

// HTTP layer tests: routing, identity headers, and the sentinel-error →
// status-code mapping. Business behavior is covered in engine_test.go.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireflow/pipeline-service/internal/pipeline"
)

func newServer(t *testing.T) (*memStore, *httptest.Server) {
	t.Helper()
	store, _, engine := newFixture()

	mux := http.NewServeMux()
	pipeline.NewHandler(engine).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return store, srv
}

func doJSON(t *testing.T, method, url, userID, role, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("x-user-id", userID)
		req.Header.Set("x-user-role", role)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHandler_ApplyAndChangeStage(t *testing.T) {
	_, srv := newServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/applications/apply",
		candidateID, "candidate", `{"jobId":"job-open"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	appID, _ := body["id"].(string)
	require.NotEmpty(t, appID)
	assert.Equal(t, "Applied", body["stage"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/applications/"+appID+"/stage",
		recruiterID, "recruiter", `{"newStage":" screening "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Applied", body["oldStage"])
	assert.Equal(t, "Screening", body["newStage"])
}

func TestHandler_MissingIdentityIsUnauthorized(t *testing.T) {
	_, srv := newServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/applications/apply", "", "", `{"jobId":"job-open"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_ErrorMapping(t *testing.T) {
	_, srv := newServer(t)

	// Forbidden: recruiter may not apply.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/applications/apply",
		recruiterID, "recruiter", `{"jobId":"job-open"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// NotFound: unknown job.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/applications/apply",
		candidateID, "candidate", `{"jobId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Conflict: duplicate application.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/applications/apply",
		candidateID, "candidate", `{"jobId":"job-open"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/applications/apply",
		candidateID, "candidate", `{"jobId":"job-open"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandler_BadStageValues(t *testing.T) {
	store, srv := newServer(t)

	app, err := store.CreateApplication(context.Background(), candidateID, jobOpenID)
	require.NoError(t, err)

	// UnknownStage → 400.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/applications/"+app.ID+"/stage",
		recruiterID, "recruiter", `{"newStage":"Shortlisted"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// IllegalTransition → 400.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/applications/"+app.ID+"/stage",
		recruiterID, "recruiter", `{"newStage":"Hired"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_HistoryEndpoint(t *testing.T) {
	store, srv := newServer(t)

	app, err := store.CreateApplication(context.Background(), candidateID, jobOpenID)
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/applications/"+app.ID+"/stage",
		recruiterID, "recruiter", `{"newStage":"Screening"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/applications/"+app.ID+"/history", nil)
	require.NoError(t, err)
	req.Header.Set("x-user-id", candidateID)
	req.Header.Set("x-user-role", "candidate")

	histResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer histResp.Body.Close()
	require.Equal(t, http.StatusOK, histResp.StatusCode)

	var entries []map[string]any
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0]["fromStage"])
	assert.Equal(t, "Applied", entries[0]["toStage"])
	assert.Equal(t, "Applied", entries[1]["fromStage"])
	assert.Equal(t, "Screening", entries[1]["toStage"])
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL: srv.URL,
		Token: func(ctx context.Context, baseURL string) (string, error) {
			return "test-token", nil
		},
	})
}

func TestSubmitSendsMultipartAndParsesResponse(t *testing.T) {
	var gotAuth, gotMode, gotFile string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/runs", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotMode = r.FormValue("mode")
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile = hdr.Filename

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "accepted", "run_id": "run-12345", "steps": []}`))
	})

	resp, err := client.Submit(context.Background(), []byte("archive-bytes"), "repo.tar.gz", ScanConfig{Mode: "full", EnablePush: true})
	require.NoError(t, err)
	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, "full", gotMode)
	require.Equal(t, "repo.tar.gz", gotFile)
	require.Equal(t, "run-12345", *resp.RunID)
}

func TestSubmitSurfacesHTTPFailureWithBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "quota exceeded", "quota_used": 5, "quota_limit": 5}`))
	})

	_, err := client.Submit(context.Background(), []byte("x"), "a.tgz", ScanConfig{})
	var req *RequestError
	require.ErrorAs(t, err, &req)
	require.Equal(t, 429, req.StatusCode)

	re := Classify(err)
	require.NotNil(t, re)
	require.Equal(t, CodeQuotaExceeded, re.ErrorCode)
	require.Equal(t, 5, re.Quota.Used)
}

func TestSubmitSchemaFailureIsHard(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": true}`))
	})

	_, err := client.Submit(context.Background(), []byte("x"), "a.tgz", ScanConfig{})
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Nil(t, Classify(err))
}

func TestCheckStatusRetriesServerErrors(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"message": "running", "run_status": "in_progress"}`))
	})

	resp, err := client.CheckStatus(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, "in_progress", resp.RunStatus)
}

func TestCheckStatusDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.CheckStatus(context.Background(), "run-1")
	require.Equal(t, 1, calls)
	var req *RequestError
	require.ErrorAs(t, err, &req)
	require.Equal(t, 401, req.StatusCode)
}

func TestComputeSummaryAppliesDefaults(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/runs/run-1/summary", r.URL.Path)
		_, _ = w.Write([]byte(`{"pr_count": 2, "pr_urls": ["https://github.com/acme/app/pull/7"]}`))
	})

	s, err := client.ComputeSummary(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, 2, s.PRCount)
	require.Len(t, s.PRURLs, 1)
	require.NotNil(t, s.Warnings)
	require.Equal(t, 0, s.VulnerabilitiesFound)
}

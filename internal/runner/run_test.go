package runner

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AppSecureAI/automation-action/internal/api"
)

func TestExecuteEndToEnd(t *testing.T) {
	statusCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _ = w.Write([]byte(`{"message": "accepted", "run_id": "run-12345", "steps": []}`))
	})
	mux.HandleFunc("GET /api/v1/runs/run-12345/status", func(w http.ResponseWriter, r *http.Request) {
		statusCalls++
		if statusCalls <= 2 {
			_, _ = w.Write([]byte(`{"message": "running", "run_status": "in_progress", "process_tracking": {"find_status": "completed"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"message": "done", "run_status": "completed"}`))
	})
	mux.HandleFunc("POST /api/v1/runs/run-12345/summary", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pr_count": 2, "pr_urls": ["https://github.com/acme/app/pull/7", "https://github.com/acme/app/pull/8"]}`))
	})

	r := runnerWithServer(t, mux.ServeHTTP)
	r.PollMaxRetries = 10
	r.PollInterval = time.Millisecond
	r.FinalizeDefaults = fastOpts()

	var submitted string
	r.OnSubmitted = func(runID string) { submitted = runID }

	report, err := r.Execute(context.Background(), []byte("archive"), "repo.tar.gz", api.ScanConfig{Mode: "full"}, nil)
	require.NoError(t, err)
	require.Equal(t, "run-12345", submitted)
	require.Equal(t, ReportCompleted, report.Status)
	require.Equal(t, "run-12345", report.RunID)
	require.NotNil(t, report.Summary)
	require.Equal(t, 2, report.Summary.PRCount)
	require.Equal(t, 3, statusCalls)
}

func TestExecuteSynchronousCompletion(t *testing.T) {
	r := runnerWithServer(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"message": "scanned synchronously", "run_id": null, "steps": [], "summary": {"vulnerabilities_found": 1}}`))
	})

	report, err := r.Execute(context.Background(), []byte("archive"), "repo.tar.gz", api.ScanConfig{}, nil)
	require.NoError(t, err)
	require.Equal(t, ReportCompleted, report.Status)
	require.Empty(t, report.RunID)
	require.Equal(t, 1, report.Summary.VulnerabilitiesFound)
}

func TestExecuteFailedRunDegradesGracefully(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "accepted", "run_id": "run-9", "steps": []}`))
	})
	mux.HandleFunc("GET /api/v1/runs/run-9/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "done", "run_status": "failed", "description": "remediation crashed"}`))
	})
	mux.HandleFunc("POST /api/v1/runs/run-9/summary", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"vulnerabilities_found": 6, "remediations_failed": 6}`))
	})

	r := runnerWithServer(t, mux.ServeHTTP)
	r.PollMaxRetries = 10
	r.PollInterval = time.Millisecond
	r.FinalizeDefaults = fastOpts()

	report, err := r.Execute(context.Background(), []byte("archive"), "repo.tar.gz", api.ScanConfig{}, nil)
	require.NoError(t, err, "a failed run is reported, not raised")
	require.Equal(t, ReportFailed, report.Status)
	require.Equal(t, "remediation crashed", report.Message)
	require.NotNil(t, report.Summary)
	require.Equal(t, 6, report.Summary.RemediationsFailed)
}

func TestSubmitFormatsBusinessErrors(t *testing.T) {
	r := runnerWithServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "quota exceeded", "quota_used": 5, "quota_limit": 5}`))
	})

	_, err := r.Submit(context.Background(), []byte("x"), "a.tgz", api.ScanConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "[Scan submission failed] quota exceeded")
	require.Contains(t, err.Error(), "Quota used: 5 of 5")
}

func TestSubmitTimeoutIsDistinguished(t *testing.T) {
	// The handler holds the request open until the client gives up.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Drain the body so the server detects the client disconnect; with an
		// unread body, req.Context() is never canceled and Close would hang.
		_, _ = io.Copy(io.Discard, req.Body)
		<-req.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(api.Options{BaseURL: srv.URL, SubmitTimeout: 100 * time.Millisecond})
	r := New(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := r.Submit(context.Background(), []byte("x"), "a.tgz", api.ScanConfig{})
	require.ErrorIs(t, err, ErrSubmitTimeout)
}

func TestSubmitSchemaFailureIsDistinct(t *testing.T) {
	r := runnerWithServer(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"run_id": "run-1"}`))
	})

	_, err := r.Submit(context.Background(), []byte("x"), "a.tgz", api.ScanConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "response is unusable")
}

func TestStatusCheckMapsTransportFailuresToNetworkError(t *testing.T) {
	r := runnerWithServer(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	res, err := r.statusCheckFor("run-1")(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusNetworkError, res.Status)
}

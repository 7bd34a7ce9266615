package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printshop-os/opsboard/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client := NewClient(&Config{
		BaseURL:        baseURL,
		Token:          "test-token",
		Timeout:        2 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		PageSize:       2,
		RequestGap:     time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	client.now = func() time.Time {
		return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	}
	return client
}

func TestClientListJobs_PaginatesToExhaustion(t *testing.T) {
	var gotAuth atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))

		page := r.URL.Query().Get("pagination[page]")
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			fmt.Fprint(w, `{
				"data": [
					{"id": 1, "attributes": {"customer": "Riverside Brewing Co", "status": "printing", "dueDate": "2025-06-11T09:00:00Z"}},
					{"id": 2, "attributes": {"customer": "Summit HVAC", "status": "quote", "dueDate": "2025-06-20T09:00:00Z"}}
				],
				"meta": {"pagination": {"page": 1, "pageSize": 2, "pageCount": 2, "total": 3}}
			}`)
		case "2":
			fmt.Fprint(w, `{
				"data": [
					{"id": 3, "attributes": {"customer": "Harbor Yoga Studio", "status": "design", "dueDate": "2025-06-12T09:00:00Z"}}
				],
				"meta": {"pagination": {"page": 2, "pageSize": 2, "pageCount": 2, "total": 3}}
			}`)
		default:
			t.Errorf("unexpected page request: %q", page)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	jobs, err := client.ListJobs(context.Background())

	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "1", jobs[0].ID)
	assert.Equal(t, "Riverside Brewing Co", jobs[0].Customer)
	assert.Equal(t, domain.StatusPrinting, jobs[0].Status)
	assert.Equal(t, "3", jobs[2].ID)
	assert.Equal(t, "Bearer test-token", gotAuth.Load())
}

func TestClientRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [], "meta": {"pagination": {"page": 1, "pageSize": 2, "pageCount": 1, "total": 0}}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	jobs, err := client.ListJobs(context.Background())

	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, int32(3), requests.Load(), "two failures then one success")
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "invalid filter"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ListJobs(context.Background())

	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load(), "4xx must not be retried")
	assert.False(t, domain.IsRetryable(err))
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestClientExhaustedRetriesAreRetryable(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ListJobs(context.Background())

	require.Error(t, err)
	assert.Equal(t, int32(3), requests.Load())
	assert.True(t, domain.IsRetryable(err), "exhausted 5xx retries stay retryable for the outbox")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
}

func TestClientGetJob_NotFound(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GetJob(context.Background(), "missing")

	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), requests.Load(), "404 must not be retried")
	assert.False(t, domain.IsRetryable(err))
}

func TestClientUpdateJobStatus(t *testing.T) {
	type update struct {
		Data map[string]string `json:"data"`
	}
	var got update
	var gotMethod, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {"id": 7}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.UpdateJobStatus(context.Background(), "7", domain.StatusFinishing)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/orders/7", gotPath)
	assert.Equal(t, "finishing", got.Data["status"])
}

func TestClientMarkInvoicePaid(t *testing.T) {
	var got map[string]map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {"id": 9}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.MarkInvoicePaid(context.Background(), "9"))

	assert.Equal(t, "paid", got["data"]["status"])
	assert.Equal(t, "2025-06-10T12:00:00Z", got["data"]["paidAt"])
}

func TestClientHealth(t *testing.T) {
	healthy := &atomic.Bool{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [], "meta": {"pagination": {"page": 1, "pageSize": 1, "pageCount": 1, "total": 0}}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	assert.Error(t, client.Health(context.Background()))

	healthy.Store(true)
	assert.NoError(t, client.Health(context.Background()))
}

func TestClientWaitForHealthy(t *testing.T) {
	var probes atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if probes.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [], "meta": {"pagination": {"page": 1, "pageSize": 1, "pageCount": 1, "total": 0}}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	err := client.WaitForHealthy(context.Background(), time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, probes.Load(), int32(3))
}

func TestClientWaitForHealthy_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	err := client.WaitForHealthy(context.Background(), 10*time.Millisecond, time.Millisecond)
	require.ErrorIs(t, err, ErrUnhealthy)
}

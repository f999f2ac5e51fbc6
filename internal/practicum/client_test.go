package practicum

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"homeworkbot/internal/homework"
	logx "homeworkbot/pkg/logx"
)

func newTestClient(t *testing.T, endpoint string, opts ...Option) *Client {
	t.Helper()
	c, err := New(Config{Endpoint: endpoint, Token: "secret", Timeout: 2 * time.Second}, logx.Nop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchSinceSendsAuthAndCursor(t *testing.T) {
	t.Parallel()
	var gotAuth, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks":[{"homework_name":"proj1","status":"approved"}],"current_date":1000}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	resp, err := c.FetchSince(context.Background(), 900)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if gotAuth != "OAuth secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotFrom != "900" {
		t.Fatalf("from_date = %q, want 900", gotFrom)
	}
	if resp.CurrentDate == nil || *resp.CurrentDate != 1000 {
		t.Fatalf("CurrentDate = %v", resp.CurrentDate)
	}
	tasks, err := homework.ExtractTasks(resp)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ExtractTasks = %v, %v", tasks, err)
	}
}

func TestFetchSinceDefaultsToNow(t *testing.T) {
	t.Parallel()
	var gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from_date")
		_, _ = w.Write([]byte(`{"homeworks":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, WithClock(func() time.Time { return time.Unix(4242, 0) }))
	if _, err := c.FetchSince(context.Background(), 0); err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if gotFrom != "4242" {
		t.Fatalf("from_date = %q, want 4242", gotFrom)
	}
}

func TestFetchSinceNon200(t *testing.T) {
	t.Parallel()
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "endpoint unavailable", code)
			}))
			t.Cleanup(srv.Close)

			_, err := newTestClient(t, srv.URL).FetchSince(context.Background(), 1)
			var apiErr *homework.APIAnswerError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIAnswerError", err)
			}
			if apiErr.StatusCode != code {
				t.Fatalf("StatusCode = %d, want %d", apiErr.StatusCode, code)
			}
			if !strings.Contains(err.Error(), strconv.Itoa(code)) {
				t.Fatalf("message %q lacks status code", err.Error())
			}
			if !strings.Contains(err.Error(), "endpoint unavailable") {
				t.Fatalf("message %q lacks body", err.Error())
			}
		})
	}
}

func TestFetchSinceTransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := newTestClient(t, endpoint).FetchSince(context.Background(), 1)
	var apiErr *homework.APIAnswerError
	if !errors.As(err, &apiErr) || apiErr.Err == nil {
		t.Fatalf("err = %v, want transport APIAnswerError", err)
	}
	if apiErr.StatusCode != 0 {
		t.Fatalf("StatusCode = %d, want 0", apiErr.StatusCode)
	}
}

func TestFetchSinceRejectsNonObject(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(t, srv.URL).FetchSince(context.Background(), 1)
	var apiErr *homework.APIAnswerError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIAnswerError", err)
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

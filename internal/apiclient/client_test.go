package apiclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/pace-platform/pace-admin/internal/metrics"
)

type captured struct {
	header http.Header
	path   string
	query  url.Values
	body   []byte
}

func newBackend(t *testing.T, status int, respBody string) (*httptest.Server, chan captured) {
	t.Helper()
	seen := make(chan captured, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- captured{header: r.Header.Clone(), path: r.URL.Path, query: r.URL.Query(), body: body}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func mustClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://backend")
	assert.Error(t, err)

	_, err = New("://nope")
	assert.Error(t, err)
}

func TestBearerAttachment(t *testing.T) {
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})

	tests := []struct {
		name       string
		path       string
		tokens     oauth2.TokenSource
		wantHeader string
	}{
		{"private path with token", "/api/courses", tokens, "Bearer abc"},
		{"login path never carries a token", "/api/auth/login", tokens, ""},
		{"public path never carries a token", "/api/public/theme", tokens, ""},
		{"private path without token", "/api/courses", nil, ""},
		{"private path with empty token", "/api/courses", oauth2.StaticTokenSource(&oauth2.Token{}), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen := newBackend(t, http.StatusOK, `{}`)
			c := mustClient(t, srv.URL, WithTokenSource(tt.tokens))

			require.NoError(t, c.Do(context.Background(), Request{Op: "Fetch items", Path: tt.path}, nil))

			got := <-seen
			assert.Equal(t, tt.path, got.path)
			assert.Equal(t, tt.wantHeader, got.header.Get("Authorization"))
		})
	}
}

func TestCSRFHeaderFromCookie(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, _ := url.Parse(srv.URL)

	c := mustClient(t, srv.URL, WithCookieJar(jar))

	require.NoError(t, c.Do(context.Background(), Request{Op: "Fetch items", Path: "/api/courses"}, nil))
	assert.Empty(t, (<-seen).header.Get(DefaultCSRFHeader), "no cookie, no header")

	jar.SetCookies(u, []*http.Cookie{{Name: DefaultCSRFCookie, Value: "csrf-1"}})
	require.NoError(t, c.Do(context.Background(), Request{Op: "Fetch items", Path: "/api/courses"}, nil))
	got := <-seen
	assert.Equal(t, "csrf-1", got.header.Get(DefaultCSRFHeader))
	assert.Contains(t, got.header.Get("Cookie"), "XSRF-TOKEN=csrf-1")
}

func TestHeaderOrdering(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)
	c := mustClient(t, srv.URL,
		WithHeader("X-Client", "pace-admin"),
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})),
		WithRequestEditor(func(_ context.Context, req *http.Request) error {
			req.Header.Set("X-Edited", req.Header.Get("Authorization"))
			return nil
		}),
	)

	err := c.Do(context.Background(), Request{
		Op:     "Fetch items",
		Path:   "/api/courses",
		JSON:   map[string]string{"name": "x"},
		Header: http.Header{"X-Client": {"override"}},
	}, nil)
	require.NoError(t, err)

	got := <-seen
	assert.Equal(t, "override", got.header.Get("X-Client"))
	assert.Equal(t, "Bearer abc", got.header.Get("X-Edited"))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.header.Get("Accept"))
	assert.JSONEq(t, `{"name":"x"}`, string(got.body))
}

func TestEditorErrorIsNormalized(t *testing.T) {
	c := mustClient(t, "http://127.0.0.1:1", WithRequestEditor(func(context.Context, *http.Request) error {
		return errors.New("boom")
	}))

	err := c.Do(context.Background(), Request{Op: "Save course", Path: "/api/courses"}, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Save course failed", apiErr.Message)
	assert.Zero(t, apiErr.Status)
}

func TestSuccessDecoding(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{"id":"c1","name":"Maths"}`)
	c := mustClient(t, srv.URL)

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.Do(context.Background(), Request{
		Op:    "Fetch course",
		Path:  "/api/courses",
		Query: url.Values{"universityId": {"u1"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Maths", out.Name)
	assert.Equal(t, "u1", (<-seen).query.Get("universityId"))
}

func TestEmptySuccessBody(t *testing.T) {
	srv, _ := newBackend(t, http.StatusNoContent, ``)
	c := mustClient(t, srv.URL)

	var out map[string]any
	require.NoError(t, c.Do(context.Background(), Request{Op: "Delete course", Method: http.MethodDelete, Path: "/api/courses/1"}, &out))
	assert.Nil(t, out)
}

func TestUndecodableSuccessBody(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `<html>`)
	c := mustClient(t, srv.URL)

	var out map[string]any
	err := c.Do(context.Background(), Request{Op: "Fetch courses", Path: "/api/courses"}, &out)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Fetch courses failed", apiErr.Message)
	assert.Equal(t, http.StatusOK, apiErr.Status)
}

func TestServerErrorNormalization(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFields  map[string]any
	}{
		{
			name:        "server message and extra fields",
			status:      http.StatusBadRequest,
			body:        `{"message":"Course code taken","field":"code"}`,
			wantMessage: "Course code taken",
			wantFields:  map[string]any{"field": "code"},
		},
		{
			name:        "nested error message",
			status:      http.StatusConflict,
			body:        `{"error":{"message":"Already exists"}}`,
			wantMessage: "Already exists",
			wantFields:  map[string]any{"error": map[string]any{"message": "Already exists"}},
		},
		{
			name:        "error string",
			status:      http.StatusForbidden,
			body:        `{"error":"forbidden"}`,
			wantMessage: "forbidden",
			wantFields:  map[string]any{"error": "forbidden"},
		},
		{
			name:        "no body",
			status:      http.StatusUnauthorized,
			body:        ``,
			wantMessage: "Fetch students failed",
		},
		{
			name:        "non json body",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "Fetch students failed",
		},
		{
			name:        "json string body",
			status:      http.StatusInternalServerError,
			body:        `"database down"`,
			wantMessage: "database down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newBackend(t, tt.status, tt.body)
			c := mustClient(t, srv.URL)

			err := c.Do(context.Background(), Request{Op: "Fetch students", Path: "/api/admin/students"}, nil)
			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantMessage, apiErr.Error())
			assert.Equal(t, tt.wantFields, apiErr.Fields)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := mustClient(t, base)
	err := c.Do(context.Background(), Request{Op: "Login", Path: "/api/auth/login"}, nil)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Login failed", apiErr.Message)
	assert.Zero(t, apiErr.Status)
	assert.NotNil(t, apiErr.Cause)
}

func TestCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := mustClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Do(ctx, Request{Op: "Fetch analytics", Path: "/api/analytics/summary"}, nil)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Fetch analytics failed", apiErr.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not aborted by context cancellation")
	}
}

func TestUnauthorizedHandler(t *testing.T) {
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})

	tests := []struct {
		name      string
		path      string
		tokens    oauth2.TokenSource
		wantCalls int
	}{
		{"rejected bearer", "/api/admin/students", tokens, 1},
		{"failed login", "/api/auth/login", tokens, 0},
		{"no token attached", "/api/admin/students", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newBackend(t, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)

			calls := 0
			opts := []Option{WithUnauthorizedHandler(func(context.Context) { calls++ })}
			if tt.tokens != nil {
				opts = append(opts, WithTokenSource(tt.tokens))
			}
			c := mustClient(t, srv.URL, opts...)

			err := c.Do(context.Background(), Request{Op: "Call", Method: http.MethodPost, Path: tt.path}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestMultipartUpload(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{"url":"https://cdn/logo.png"}`)
	c := mustClient(t, srv.URL, WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})))

	var out struct {
		URL string `json:"url"`
	}
	err := c.Do(context.Background(), Request{
		Op:     "Upload logo",
		Method: http.MethodPost,
		Path:   "/api/theme/logo",
		JSON:   map[string]string{"ignored": "true"},
		Form: &Multipart{
			Fields: map[string]string{"universityId": "u1"},
			Files:  []File{{Field: "logo", Name: "logo.png", ContentType: "image/png", Data: []byte("png-bytes")}},
		},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/logo.png", out.URL)

	got := <-seen
	assert.Equal(t, "Bearer abc", got.header.Get("Authorization"))

	mediaType, params, err := mime.ParseMediaType(got.header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(bytes.NewReader(got.body), params["boundary"])
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, form.Value["universityId"])
	require.Len(t, form.File["logo"], 1)
	assert.Equal(t, "logo.png", form.File["logo"][0].Filename)
	assert.Equal(t, "image/png", form.File["logo"][0].Header.Get("Content-Type"))
}

func TestWithDoesNotMutateParent(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)
	parent := mustClient(t, srv.URL, WithHeader("X-Client", "pace-admin"))
	child := parent.With(
		WithHeader("X-Client", "child"),
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})),
	)

	require.NoError(t, parent.Do(context.Background(), Request{Op: "Fetch items", Path: "/api/x"}, nil))
	got := <-seen
	assert.Equal(t, "pace-admin", got.header.Get("X-Client"))
	assert.Empty(t, got.header.Get("Authorization"))

	require.NoError(t, child.Do(context.Background(), Request{Op: "Fetch items", Path: "/api/x"}, nil))
	got = <-seen
	assert.Equal(t, "child", got.header.Get("X-Client"))
	assert.Equal(t, "Bearer abc", got.header.Get("Authorization"))
}

func TestMetricsOutcome(t *testing.T) {
	srv, _ := newBackend(t, http.StatusInternalServerError, `{}`)
	m := metrics.New(prometheus.NewRegistry())
	c := mustClient(t, srv.URL, WithMetrics(m))

	_ = c.Do(context.Background(), Request{Op: "Fetch records", Path: "/api/records"}, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendCalls.WithLabelValues("Fetch records", "http_5xx")))
}

func TestNormalizePassthrough(t *testing.T) {
	orig := &Error{Op: "Login", Status: 401, Message: "Bad credentials"}
	assert.Same(t, orig, Normalize("Other", orig))
	assert.Nil(t, Normalize("Other", nil))

	wrapped := Normalize("Save theme", errors.New("x"))
	assert.Equal(t, "Save theme failed", wrapped.Message)
}

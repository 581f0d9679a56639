package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/middleware"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c, srv
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New("not a url")
	assert.ErrorIs(t, err, ErrNoBaseURL)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	var names []string
	for _, mw := range c.Middlewares() {
		names = append(names, mw.Name())
	}
	assert.Equal(t, []string{"request_id", "logging", "telemetry"}, names)
}

func TestPostSendsJSONAndDecodesSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "/v1/auth/login", r.URL.Path)
		_ = envelope.Write(w, r, http.StatusOK, envelope.OK(envelope.CodeLoginSuccess, map[string]any{"userId": 3}))
	}, WithUserAgent("forum-test"))

	out := c.Post(context.Background(), "/v1/auth/login", map[string]string{"email": "a@b.com", "password": "Abcdef1!"})
	s, ok := out.(envelope.Success)
	require.True(t, ok, "got %#v", out)
	assert.Equal(t, envelope.CodeLoginSuccess, s.Code)
	assert.JSONEq(t, `{"userId":3}`, string(s.Data))

	assert.Equal(t, "a@b.com", gotBody["email"])
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "forum-test", gotHeader.Get("User-Agent"))
	assert.Len(t, gotHeader.Get(envelope.RequestIDHeader), 36)
}

func TestFailureCarriesEchoedRequestID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = envelope.Write(w, r, http.StatusConflict, envelope.Fail(envelope.CodeAlreadyExists, "x", nil))
	})
	out := c.Get(context.Background(), "/v1/auth/emails/availability")
	f, ok := out.(*envelope.Failure)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, f.Status)
	assert.Equal(t, envelope.CodeAlreadyExists, f.Code)
	assert.Len(t, f.RequestID, 36)
	assert.NotEqual(t, envelope.LocalRequestID, f.RequestID)
}

func TestNoContentAndMethods(t *testing.T) {
	var methods []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusNoContent)
		_, _ = io.WriteString(w, "")
	})
	ctx := context.Background()
	assert.Equal(t, envelope.Success{}, c.Delete(ctx, "/v1/posts/1"))
	assert.Equal(t, envelope.Success{}, c.Patch(ctx, "/v1/users/me", map[string]string{"nickname": "n"}))
	assert.Equal(t, []string{http.MethodDelete, http.MethodPatch}, methods)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(srv.URL, WithTimeout(time.Second))
	require.NoError(t, err)
	srv.Close()

	out := c.Get(context.Background(), "/v1/posts")
	f, ok := out.(*envelope.Failure)
	require.True(t, ok)
	assert.True(t, f.Transport())
	assert.Zero(t, f.Status)
	assert.Empty(t, f.Code)
	assert.Equal(t, envelope.LocalRequestID, f.RequestID)
	assert.Error(t, f.Err)
}

func TestCancelledContextIsTransportFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := c.Get(ctx, "/v1/posts").(*envelope.Failure)
	assert.True(t, f.Transport())
	assert.True(t, errors.Is(f, context.Canceled))
}

func TestUnencodableBodyIsLocalFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})
	f := c.Post(context.Background(), "/v1/posts", map[string]any{"bad": make(chan int)}).(*envelope.Failure)
	assert.True(t, f.Transport())
}

func TestDoBuildsQueryAndRoute(t *testing.T) {
	var got *url.URL
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL
		_ = envelope.Write(w, r, http.StatusOK, envelope.OK(envelope.CodeSuccess, map[string]bool{"available": true}))
	})
	out := c.Do(context.Background(), Call{
		Method: http.MethodGet,
		Route:  "/v1/auth/emails/availability",
		Query:  url.Values{"email": {"neo+1@example.com"}},
	})
	require.NoError(t, envelope.Err(out))
	assert.Equal(t, "neo+1@example.com", got.Query().Get("email"))

	assert.Equal(t, "/v1/posts/7/comments/a%20b", Expand("/v1/posts/{id}/comments/{commentId}", 7, "a b"))
	assert.Equal(t, "/v1/posts/{id}", Expand("/v1/posts/{id}"))
}

func TestUploadIsSingleMultipartRequest(t *testing.T) {
	var requests int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, hdr, err := r.FormFile("profileImage")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "avatar.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "PNGDATA", string(data))
		_ = envelope.Write(w, r, http.StatusCreated, envelope.OK(envelope.CodeCreated, map[string]string{"profileImageUrl": "/uploads/avatar.png"}))
	})

	out := c.Upload(context.Background(), "/v1/auth/profile-image", "profileImage", File{
		Name:        "avatar.png",
		ContentType: "image/png",
		Content:     strings.NewReader("PNGDATA"),
	})
	s, ok := out.(envelope.Success)
	require.True(t, ok, "got %#v", out)
	v, err := envelope.As[map[string]string](s)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatar.png", v["profileImageUrl"])
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests))
}

func TestUploadFailureFallbackMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})
	f := c.Upload(context.Background(), "/v1/posts/image", "postImage", File{Content: strings.NewReader("x")}).(*envelope.Failure)
	assert.Equal(t, envelope.UploadFailureMessage, f.Message)

	f = c.Upload(context.Background(), "/v1/posts/image", "", File{Content: strings.NewReader("x")}).(*envelope.Failure)
	assert.True(t, f.Transport())
}

func TestCookiesRideAlong(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "s3cr3t", Path: "/", HttpOnly: true})
			_ = envelope.Write(w, r, http.StatusOK, envelope.OK(envelope.CodeLoginSuccess, nil))
		default:
			if ck, err := r.Cookie("session_id"); err != nil || ck.Value != "s3cr3t" {
				_ = envelope.Write(w, r, http.StatusUnauthorized, envelope.Fail(envelope.CodeUnauthorized, "no session", nil))
				return
			}
			_ = envelope.Write(w, r, http.StatusOK, envelope.OK(envelope.CodeSuccess, nil))
		}
	})
	ctx := context.Background()
	require.Error(t, envelope.Err(c.Get(ctx, "/v1/users/me")))
	require.NoError(t, envelope.Err(c.Post(ctx, "/v1/auth/login", map[string]string{})))
	require.NoError(t, envelope.Err(c.Get(ctx, "/v1/users/me")))
}

func TestFileJarPersistsBetweenClients(t *testing.T) {
	var sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/auth/login" {
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "abc", Path: "/"})
		} else if ck, err := r.Cookie("session_id"); err == nil && ck.Value == "abc" {
			sawCookie.Store(true)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cookies.json")
	jar, err := NewFileJar(path, srv.URL)
	require.NoError(t, err)
	c, err := New(srv.URL, WithCookieJar(jar))
	require.NoError(t, err)
	require.NoError(t, envelope.Err(c.Post(context.Background(), "/v1/auth/login", nil)))

	jar2, err := NewFileJar(path, srv.URL)
	require.NoError(t, err)
	c2, err := New(srv.URL, WithCookieJar(jar2))
	require.NoError(t, err)
	require.NoError(t, envelope.Err(c2.Get(context.Background(), "/v1/users/me")))
	assert.True(t, sawCookie.Load())

	require.NoError(t, jar2.Clear())
	base, _ := url.Parse(srv.URL)
	assert.Empty(t, jar2.Cookies(base))
	jar3, err := NewFileJar(path, srv.URL)
	require.NoError(t, err)
	assert.Empty(t, jar3.Cookies(base))
}

func TestWithHTTPClientLeavesCallerClientUntouched(t *testing.T) {
	hc := &http.Client{}
	jar := &recordingJar{}

	c, err := New("http://example.test", WithCookieJar(jar), WithHTTPClient(hc), WithTimeout(5*time.Second))
	require.NoError(t, err)

	assert.Nil(t, hc.Jar)
	assert.Zero(t, hc.Timeout)
	assert.Same(t, jar, c.Jar())
	assert.Equal(t, 5*time.Second, c.http.Timeout)
}

type recordingJar struct{ http.CookieJar }

func TestResolveURL(t *testing.T) {
	c, err := New("http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/uploads/a.png", c.ResolveURL("/uploads/a.png"))
	assert.Equal(t, "http://localhost:8000/uploads/a.png", c.ResolveURL("uploads/a.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", c.ResolveURL("https://cdn.example.com/a.png"))
	assert.Equal(t, "data:image/png;base64,AAA", c.ResolveURL("data:image/png;base64,AAA"))
	assert.Empty(t, c.ResolveURL("  "))
}

func TestCustomMiddlewareSeesOutcome(t *testing.T) {
	var codes []string
	probe := middleware.Func("probe", 50, func(ctx context.Context, req *middleware.CallRequest, next middleware.CallFunc) (*middleware.CallResponse, error) {
		resp, err := next(ctx, req)
		if resp != nil {
			codes = append(codes, resp.Code())
		}
		return resp, err
	})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = envelope.Write(w, r, http.StatusNotFound, envelope.Fail(envelope.CodePostNotFound, "", nil))
	}, WithMiddleware(probe), WithRateLimit(1000, 10))

	c.Get(context.Background(), "/v1/posts/1")
	assert.Equal(t, []string{envelope.CodePostNotFound}, codes)
	assert.Len(t, c.Middlewares(), 5)
	require.NoError(t, c.Close(context.Background()))
}

package httpc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loykin/apicall/internal/request"
)

func mustBuild(t *testing.T, b *request.Builder) *request.Request {
	t.Helper()
	req, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return req
}

func TestTransport_SendPostWithHeadersAndQuery(t *testing.T) {
	var gotMethod, gotAuth, gotQ string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotQ = r.URL.Query().Get("page")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Trace", "t1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	req := mustBuild(t, request.New(srv.URL).
		SetAuthentication(request.AuthBearer, "tok").
		AddQueryParam("page", "2").
		SetBody([]byte(`{"q":"x"}`)))

	resp, err := (&Transport{}).Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotMethod != http.MethodPost || gotAuth != "Bearer tok" || gotQ != "2" {
		t.Fatalf("server saw method=%s auth=%q page=%q", gotMethod, gotAuth, gotQ)
	}
	if string(gotBody) != `{"q":"x"}` {
		t.Fatalf("server body = %q", gotBody)
	}
	if resp.StatusCode != 200 || string(resp.Body) != `{"ok":true}` || resp.Header.Get("X-Trace") != "t1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestTransport_GetOmitsBody(t *testing.T) {
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotLen = len(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := mustBuild(t, request.New(srv.URL).SetMethod(http.MethodGet).SetBody([]byte("ignored")))
	if _, err := NewTransport(Httpc{}, nil).Send(context.Background(), req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotLen != 0 {
		t.Fatalf("GET carried a %d byte body", gotLen)
	}
}

func TestTransport_NonOKIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	resp, err := (&Transport{}).Send(context.Background(), mustBuild(t, request.New(srv.URL).SetMethod(http.MethodPut)))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != 404 || string(resp.Body) != "nope" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestTransport_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := (&Transport{}).Send(context.Background(), mustBuild(t, request.New(url)))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T %v", err, err)
	}
	if !te.Retryable() || te.Method != http.MethodPost || te.URL != url {
		t.Fatalf("unexpected transport error %+v", te)
	}
}

func TestHTTPStatusError_Retryable(t *testing.T) {
	e := &HTTPStatusError{StatusCode: 503, Body: []byte("busy")}
	if e.Retryable() {
		t.Fatal("status errors are not retryable unless marked")
	}
	e.Retry = true
	if !e.Retryable() {
		t.Fatal("marked status error should be retryable")
	}
	if e.Error() != "unexpected status 503: busy" {
		t.Fatalf("message = %q", e.Error())
	}
}

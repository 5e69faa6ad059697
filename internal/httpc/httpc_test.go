package httpc

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// helper to perform a simple GET using a client built from h
func doGet(t *testing.T, h Httpc, url string) (int, error) {
	t.Helper()
	resp, err := h.New().R().SetContext(context.Background()).Get(url)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

func TestHTTPClient_Insecure_AllowsSelfSigned(t *testing.T) {
	// Self-signed TLS server
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// default should fail due to unknown authority
	if _, err := doGet(t, Httpc{}, srv.URL); err == nil {
		t.Fatalf("expected error without insecure TLS, got nil")
	}

	h := Httpc{TLSConfig: TLSOptions{Insecure: true}.Config()}
	if code, err := doGet(t, h, srv.URL); err != nil || code != 200 {
		t.Fatalf("expected 200 with insecure, got code=%d err=%v", code, err)
	}
}

func TestHTTPClient_TLSConfigAppliedToClient(t *testing.T) {
	h := Httpc{TLSConfig: TLSOptions{MinVersion: "1.2", MaxVersion: "tls1.2"}.Config()}
	tr, _ := h.New().GetClient().Transport.(*http.Transport)
	if tr == nil || tr.TLSClientConfig == nil {
		t.Fatalf("expected TLSClientConfig for tls1.2 mode")
	}
	if tr.TLSClientConfig.MinVersion != tls.VersionTLS12 || tr.TLSClientConfig.MaxVersion != tls.VersionTLS12 {
		t.Fatalf("expected TLS1.2 only, got Min=%v Max=%v", tr.TLSClientConfig.MinVersion, tr.TLSClientConfig.MaxVersion)
	}

	// default: TLS1.3 floor
	def := Httpc{}
	tr, _ = def.New().GetClient().Transport.(*http.Transport)
	if tr == nil || tr.TLSClientConfig == nil || tr.TLSClientConfig.MinVersion != tls.VersionTLS13 {
		t.Fatalf("expected TLS1.3 minimum by default")
	}
}

func TestHTTPClient_DoesNotMutateCallerConfig(t *testing.T) {
	cfg := &tls.Config{}
	h := Httpc{TLSConfig: cfg}
	_ = h.New()
	if cfg.MinVersion != 0 {
		t.Fatalf("caller tls.Config was modified: MinVersion=%v", cfg.MinVersion)
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	h := Httpc{Timeout: 3 * time.Second}
	if got := h.New().GetClient().Timeout; got != 3*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}

func TestHTTPClient_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	}))
	defer srv.Close()
	if code, err := doGet(t, Httpc{}, srv.URL); err != nil || code != 204 {
		t.Fatalf("default client to http server expected 204, got code=%d err=%v", code, err)
	}
}

func TestParseTLSVersion(t *testing.T) {
	cases := map[string]uint16{
		"1.2":    tls.VersionTLS12,
		"TLS1.3": tls.VersionTLS13,
		"tls13":  tls.VersionTLS13,
		"v1.1":   tls.VersionTLS11,
		"":       0,
		"2.0":    0,
	}
	for in, want := range cases {
		if got := parseTLSVersion(in); got != want {
			t.Errorf("parseTLSVersion(%q) = %v, want %v", in, got, want)
		}
	}
}

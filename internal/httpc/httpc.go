package httpc

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Httpc struct {
	TLSConfig *tls.Config
	// Timeout bounds a whole exchange on the underlying http.Client; zero means none.
	Timeout time.Duration
}

// New returns a resty.Client configured according to the receiver's TLS settings.
// Defaults: MinVersion TLS1.3 when MinVersion is zero.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	cfg := h.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS13
	}
	c.SetTLSClientConfig(cfg)
	return c
}

// TLSOptions is the textual form of the client TLS settings found in config files.
type TLSOptions struct {
	Insecure   bool
	MinVersion string
	MaxVersion string
}

// Config converts the options to a tls.Config. Unknown versions are ignored.
func (o TLSOptions) Config() *tls.Config {
	// #nosec G402 -- InsecureSkipVerify is an explicit user opt-in
	cfg := &tls.Config{InsecureSkipVerify: o.Insecure}
	if v := parseTLSVersion(o.MinVersion); v != 0 {
		cfg.MinVersion = v
	}
	if v := parseTLSVersion(o.MaxVersion); v != 0 {
		cfg.MaxVersion = v
	}
	return cfg
}

func parseTLSVersion(s string) uint16 {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "tls")
	v = strings.TrimPrefix(v, "v")
	switch v {
	case "1.0", "10":
		return tls.VersionTLS10
	case "1.1", "11":
		return tls.VersionTLS11
	case "1.2", "12":
		return tls.VersionTLS12
	case "1.3", "13":
		return tls.VersionTLS13
	default:
		return 0
	}
}

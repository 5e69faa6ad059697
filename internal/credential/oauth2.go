package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/apicall/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Supported OAuth2 grant types.
const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"
)

// OAuth2Config configures token acquisition for one API name.
type OAuth2Config struct {
	GrantType    string   `mapstructure:"grant_type"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	AuthURL      string   `mapstructure:"auth_url"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	Scopes       []string `mapstructure:"scopes"`
}

// Validate checks the fields required by the grant type.
func (c OAuth2Config) Validate() error {
	if strings.TrimSpace(c.TokenURL) == "" {
		return errors.New("oauth2: token_url is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("oauth2: client_id is required")
	}
	switch c.grant() {
	case GrantClientCredentials:
		if strings.TrimSpace(c.ClientSecret) == "" {
			return errors.New("oauth2: client_secret is required for client_credentials grant")
		}
	case GrantPassword:
		if strings.TrimSpace(c.Username) == "" || c.Password == "" {
			return errors.New("oauth2: username and password are required for password grant")
		}
	default:
		return fmt.Errorf("oauth2: unsupported grant_type: %s", c.GrantType)
	}
	return nil
}

func (c OAuth2Config) grant() string {
	g := strings.ToLower(strings.TrimSpace(c.GrantType))
	switch g {
	case "", "client-credentials":
		return GrantClientCredentials
	default:
		return g
	}
}

// DecodeOAuth2Config decodes a loosely typed map (as found in YAML config) into
// an OAuth2Config.
func DecodeOAuth2Config(spec map[string]interface{}) (OAuth2Config, error) {
	var c OAuth2Config
	if err := mapstructure.Decode(spec, &c); err != nil {
		return c, fmt.Errorf("oauth2: decode config: %w", err)
	}
	return c, c.Validate()
}

// OAuth2Resolver acquires access tokens for configured API names and defers to
// Fallback for every other name. Tokens are cached until they expire.
type OAuth2Resolver struct {
	Fallback   Resolver
	HTTPClient *http.Client
	// Logger defaults to the package default logger.
	Logger *common.Logger

	providers map[string]OAuth2Config
	mu        sync.Mutex
	tokens    map[string]*oauth2.Token
}

// NewOAuth2Resolver builds a resolver from per-API config maps.
func NewOAuth2Resolver(specs map[string]map[string]interface{}, fallback Resolver) (*OAuth2Resolver, error) {
	r := &OAuth2Resolver{
		Fallback:  fallback,
		providers: map[string]OAuth2Config{},
		tokens:    map[string]*oauth2.Token{},
	}
	for name, spec := range specs {
		c, err := DecodeOAuth2Config(spec)
		if err != nil {
			return nil, fmt.Errorf("oauth2[%s]: %w", name, err)
		}
		r.providers[name] = c
	}
	return r, nil
}

// Has reports whether apiName has an OAuth2 provider.
func (r *OAuth2Resolver) Has(apiName string) bool {
	_, ok := r.providers[apiName]
	return ok
}

// Resolve returns the access token for apiName.
func (r *OAuth2Resolver) Resolve(ctx context.Context, apiName string) (string, error) {
	c, ok := r.providers[apiName]
	if !ok {
		if r.Fallback == nil {
			return "", nil
		}
		return r.Fallback.Resolve(ctx, apiName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tok, ok := r.tokens[apiName]; ok && tok.Valid() {
		return tok.AccessToken, nil
	}

	logger := common.OrDefault(r.Logger).WithComponent("oauth2").WithAPI(apiName)
	logger.Debug("acquiring oauth2 token", "grant_type", c.grant(), "token_url", c.TokenURL)

	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}
	tok, err := acquire(ctx, c)
	if err != nil {
		return "", fmt.Errorf("oauth2[%s]: %w", apiName, err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return "", fmt.Errorf("oauth2[%s]: received empty access token", apiName)
	}
	r.tokens[apiName] = tok
	return tok.AccessToken, nil
}

func acquire(ctx context.Context, c OAuth2Config) (*oauth2.Token, error) {
	switch c.grant() {
	case GrantPassword:
		oc := &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   c.AuthURL,
				TokenURL:  c.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: c.Scopes,
		}
		return oc.PasswordCredentialsToken(ctx, c.Username, c.Password)
	default:
		cc := &clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL,
			Scopes:       c.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		return cc.Token(ctx)
	}
}

package conf

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultStateExpiryDuration       time.Duration = 600 * time.Second
	defaultCredentialsExpiryDuration time.Duration = 600 * time.Second
	defaultPageSize                  int           = 10
	maxPageSize                      int           = 100
)

const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

// OAuthProviderConfiguration holds all config related to an external
// integration provider.
type OAuthProviderConfiguration struct {
	ClientID    []string `json:"client_id" split_words:"true"`
	Secret      string   `json:"secret"`
	RedirectURI string   `json:"redirect_uri" split_words:"true"`
	URL         string   `json:"url"`
	ApiURL      string   `json:"api_url" split_words:"true"`
	Scopes      []string `json:"scopes"`
	Enabled     bool     `json:"enabled"`
}

// ProviderConfiguration lists the integrations this instance can serve.
type ProviderConfiguration struct {
	HubSpot OAuthProviderConfiguration `json:"hubspot" envconfig:"HUBSPOT"`
}

// IntegrationsConfiguration holds the OAuth handshake and item loading
// settings shared by all providers.
type IntegrationsConfiguration struct {
	StateTTL                time.Duration `json:"state_ttl" split_words:"true"`
	CredentialsTTL          time.Duration `json:"credentials_ttl" split_words:"true"`
	PageSize                int           `json:"page_size" split_words:"true"`
	DeleteCredentialsOnRead bool          `json:"delete_credentials_on_read" split_words:"true" default:"true"`
	HTTPTimeout             time.Duration `json:"http_timeout" envconfig:"INTERNAL_HTTP_TIMEOUT" default:"10s"`
}

func (c *IntegrationsConfiguration) Validate() error {
	if c.PageSize < 1 || c.PageSize > maxPageSize {
		return fmt.Errorf("integrations page size must be between 1 and %d", maxPageSize)
	}
	return nil
}

// CacheConfiguration holds the ephemeral key-value store settings used for
// OAuth state and credentials.
type CacheConfiguration struct {
	Driver      string        `json:"driver" default:"redis"`
	URL         string        `json:"url" envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	KeyPrefix   string        `json:"key_prefix" split_words:"true"`
	DialTimeout time.Duration `json:"dial_timeout" split_words:"true" default:"5s"`
	PoolSize    int           `json:"pool_size" split_words:"true"`
	PingOnDial  bool          `json:"ping_on_dial" split_words:"true" default:"true"`
}

func (c *CacheConfiguration) Validate() error {
	switch c.Driver {
	case CacheDriverMemory:
		return nil
	case CacheDriverRedis:
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("invalid cache url: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("cache url scheme must be redis or rediss, got %q", u.Scheme)
		}
		return nil
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Driver)
	}
}

type APIConfiguration struct {
	Host              string
	Port              string        `envconfig:"PORT" default:"8081"`
	RequestIDHeader   string        `envconfig:"REQUEST_ID_HEADER"`
	ReadHeaderTimeout time.Duration `split_words:"true" default:"2s"`
	ShutdownTimeout   time.Duration `split_words:"true" default:"1m"`
}

func (a *APIConfiguration) Validate() error {
	if a.ReadHeaderTimeout <= 0 {
		return errors.New("api read header timeout must be positive")
	}
	if a.ShutdownTimeout <= 0 {
		return errors.New("api shutdown timeout must be positive")
	}
	return nil
}

type CORSConfiguration struct {
	AllowedOrigins []string `json:"allowed_origins" split_words:"true" default:"http://localhost:3000"`
	AllowedHeaders []string `json:"allowed_headers" split_words:"true"`
}

func (c *CORSConfiguration) AllAllowedHeaders(defaults []string) []string {
	set := make(map[string]bool)
	for _, header := range defaults {
		set[header] = true
	}

	var result []string
	result = append(result, defaults...)

	for _, header := range c.AllowedHeaders {
		if !set[header] {
			result = append(result, header)
		}

		set[header] = true
	}

	return result
}

// GlobalConfiguration holds all the configuration that applies to all instances.
type GlobalConfiguration struct {
	API          APIConfiguration
	External     ProviderConfiguration
	Integrations IntegrationsConfiguration `json:"integrations"`
	Cache        CacheConfiguration        `json:"cache"`
	Logging      LoggingConfig             `envconfig:"LOG"`
	Tracing      TracingConfig
	Metrics      MetricsConfig
	CORS         CORSConfiguration `json:"cors"`

	RateLimitHeader    string  `split_words:"true"`
	RateLimitAuthorize float64 `split_words:"true" default:"30"`
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// handle if .env file does not exist, this is OK
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

func LoadGlobal(filename string) (*GlobalConfiguration, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, err
	}

	config := new(GlobalConfiguration)

	// environment variables keep the GOTRUE prefix shared with the rest of
	// the platform's services
	if err := envconfig.Process("gotrue", config); err != nil {
		return nil, err
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyDefaults sets defaults for a GlobalConfiguration
func (config *GlobalConfiguration) ApplyDefaults() error {
	if config.Integrations.StateTTL <= 0 {
		config.Integrations.StateTTL = defaultStateExpiryDuration
	}

	if config.Integrations.CredentialsTTL <= 0 {
		config.Integrations.CredentialsTTL = defaultCredentialsExpiryDuration
	}

	if config.Integrations.PageSize == 0 {
		config.Integrations.PageSize = defaultPageSize
	}

	if config.Cache.Driver == "" {
		config.Cache.Driver = CacheDriverRedis
	}
	config.Cache.Driver = strings.ToLower(config.Cache.Driver)

	if len(config.External.HubSpot.Scopes) == 0 {
		config.External.HubSpot.Scopes = []string{
			"oauth",
			"crm.objects.contacts.read",
			"crm.objects.companies.read",
		}
	}

	if config.CORS.AllowedOrigins == nil {
		config.CORS.AllowedOrigins = []string{}
	}

	return nil
}

// Validate validates all of configuration.
func (c *GlobalConfiguration) Validate() error {
	validatables := []interface {
		Validate() error
	}{
		&c.API,
		&c.Integrations,
		&c.Cache,
		&c.Tracing,
		&c.Metrics,
	}

	for _, validatable := range validatables {
		if err := validatable.Validate(); err != nil {
			return err
		}
	}

	if c.External.HubSpot.Enabled {
		if err := c.External.HubSpot.ValidateOAuth(); err != nil {
			return fmt.Errorf("hubspot: %w", err)
		}
	}

	return nil
}

func (o *OAuthProviderConfiguration) ValidateOAuth() error {
	if !o.Enabled {
		return errors.New("provider is not enabled")
	}
	if len(o.ClientID) == 0 || o.ClientID[0] == "" {
		return errors.New("missing OAuth client ID")
	}
	if o.Secret == "" {
		return errors.New("missing OAuth secret")
	}
	if o.RedirectURI == "" {
		return errors.New("missing redirect URI")
	}
	return nil
}

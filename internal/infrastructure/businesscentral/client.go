// Package businesscentral implementa el gateway hacia la API REST (OData v4) de
// Microsoft Dynamics 365 Business Central: token OAuth2 client-credentials,
// resolución de empresa por entorno y llamadas autenticadas con reintentos.
package businesscentral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/bc-sync-api/internal/application/purchasing"
	"github.com/jhoicas/bc-sync-api/internal/domain/erp"
)

var _ purchasing.ERPGateway = (*Client)(nil)

const (
	DefaultAPIHost   = "https://api.businesscentral.dynamics.com"
	DefaultLoginHost = "https://login.microsoftonline.com"
	DefaultScope     = "https://api.businesscentral.dynamics.com/.default"

	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second

	// El token se renueva 2 minutos antes de expirar.
	tokenEarlyExpiry = 2 * time.Minute

	maxResponseBytes = 4 << 20
)

// fallbackEnvironments orden de sondeo cuando el entorno configurado no tiene la empresa.
var fallbackEnvironments = []string{"Production", "Sandbox", "Development", "Test"}

// Config parámetros de conexión al tenant.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Environment  string
	CompanyName  string
	CompanyID    string // si se define, se omite la resolución por nombre
	APIHost      string
	LoginHost    string
	Timeout      time.Duration // por intento
	MaxAttempts  int           // intentos totales
	BaseDelay    time.Duration // espera = 2^intento * BaseDelay
}

func (c *Config) applyDefaults() {
	if c.APIHost == "" {
		c.APIHost = DefaultAPIHost
	}
	if c.LoginHost == "" {
		c.LoginHost = DefaultLoginHost
	}
	if c.Environment == "" {
		c.Environment = "Production"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	c.APIHost = strings.TrimRight(c.APIHost, "/")
	c.LoginHost = strings.TrimRight(c.LoginHost, "/")
}

// HasCredentials indica si tenant, client id y secret están presentes.
func (c Config) HasCredentials() bool {
	return strings.TrimSpace(c.TenantID) != "" &&
		strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != ""
}

// Client gateway HTTP hacia Business Central. Seguro para uso concurrente.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     oauth2.TokenSource
	log        zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	company   *erp.Company
	resolving singleflight.Group
}

// Option personaliza el cliente (principalmente para tests).
type Option func(*Client)

// WithHTTPClient reemplaza el cliente HTTP usado para la API y el token.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// WithLogger inyecta el logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// WithSleeper reemplaza la espera entre reintentos.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// NewClient construye el gateway. Sin credenciales el cliente se crea igual, pero toda
// operación falla con erp.ErrCredentialsMissing sin tocar la red.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.applyDefaults()
	c := &Client{
		cfg:   cfg,
		log:   zerolog.Nop(),
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		// El timeout real es por intento (context); éste es solo un tope de seguridad.
		c.httpClient = &http.Client{Timeout: cfg.Timeout + 5*time.Second}
	}
	if cfg.HasCredentials() {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", cfg.LoginHost, url.PathEscape(cfg.TenantID)),
			Scopes:       []string{DefaultScope},
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
		c.tokens = oauth2.ReuseTokenSourceWithExpiry(nil, &credentialsSource{cfg: cc, ctx: tokenCtx}, tokenEarlyExpiry)
	}
	return c
}

// credentialsSource pide un token nuevo en cada llamada; el cacheo lo hace ReuseTokenSource.
type credentialsSource struct {
	cfg *clientcredentials.Config
	ctx context.Context
}

func (s *credentialsSource) Token() (*oauth2.Token, error) {
	return s.cfg.Token(s.ctx)
}

// Configured indica si el cliente tiene credenciales para hablar con el ERP.
func (c *Client) Configured() bool { return c.tokens != nil }

func (c *Client) checkCredentials() error {
	if c.tokens == nil {
		return erp.ErrCredentialsMissing
	}
	return nil
}

// token obtiene el bearer cacheado y traduce los fallos del endpoint de login.
func (c *Client) token() (string, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			code := rErr.Response.StatusCode
			if erp.Retryable(code) {
				return "", fmt.Errorf("%w: token %d: %v", erp.ErrTransient, code, err)
			}
			return "", fmt.Errorf("%w: %v", erp.ErrCredentialsRejected, err)
		}
		return "", fmt.Errorf("%w: token: %v", erp.ErrTransient, err)
	}
	return tok.AccessToken, nil
}

// response respuesta 2xx ya leída.
type response struct {
	status int
	body   []byte
	etag   string
}

// do ejecuta una llamada autenticada con reintentos:
//   - 429, 5xx, errores de transporte y timeouts: reintento con espera 2^intento * BaseDelay.
//   - 400, 403, 404 y demás 4xx: fallo inmediato con el cuerpo capturado.
//   - 401: erp.ErrCredentialsRejected sin reintento.
//
// Agotados los intentos se devuelve el último error envuelto en erp.ErrTransient.
func (c *Client) do(ctx context.Context, method, rawURL string, body any, header http.Header) (*response, error) {
	if err := c.checkCredentials(); err != nil {
		return nil, err
	}
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erp: serializar cuerpo: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			c.log.Warn().Err(lastErr).
				Str("method", method).Str("url", rawURL).
				Int("attempt", attempt+1).Dur("delay", delay).
				Msg("reintentando llamada al ERP")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		resp, err := c.send(ctx, method, rawURL, payload, header)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(err, erp.ErrTransient) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("erp: %d intentos agotados: %w", c.cfg.MaxAttempts, lastErr)
}

// backoff devuelve 2^n * BaseDelay (1s, 2s, 4s, ...).
func (c *Client) backoff(n int) time.Duration {
	return c.cfg.BaseDelay * time.Duration(1<<uint(n))
}

// send realiza un único intento con su propio timeout.
func (c *Client) send(ctx context.Context, method, rawURL string, payload []byte, header http.Header) (*response, error) {
	bearer, err := c.token()
	if err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("erp: crear request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelación del llamador: no se reintenta.
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", erp.ErrTransient, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", erp.ErrTransient, err)
	}

	c.log.Debug().
		Str("method", method).Str("path", req.URL.Path).
		Int("status", resp.StatusCode).Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("llamada al ERP")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &response{status: resp.StatusCode, body: raw, etag: resp.Header.Get("ETag")}, nil
	}
	return nil, &erp.APIError{
		Method:     method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// environmentURL base de la API v2.0 para un entorno.
func (c *Client) environmentURL(env string) string {
	return fmt.Sprintf("%s/v2.0/%s/%s/api/v2.0",
		c.cfg.APIHost, url.PathEscape(c.cfg.TenantID), url.PathEscape(env))
}

// resourceURL construye la URL de un recurso de la empresa resuelta.
// query ya debe venir codificada (ver odataFilter).
func (c *Client) resourceURL(ctx context.Context, resource, query string) (string, error) {
	company, err := c.ResolveCompany(ctx)
	if err != nil {
		return "", err
	}
	u := fmt.Sprintf("%s/companies(%s)/%s", c.environmentURL(company.Environment), company.ID, resource)
	if query != "" {
		u += "?" + query
	}
	return u, nil
}

// odataFilter construye "$filter=<field> eq '<value>'" escapando el literal OData.
func odataFilter(field, value string) string {
	literal := strings.ReplaceAll(value, "'", "''")
	expr := url.QueryEscape(field + " eq '" + literal + "'")
	return "$filter=" + strings.ReplaceAll(expr, "+", "%20")
}

// ifMatch devuelve la cabecera If-Match con el ETag previo o "*".
func ifMatch(etag string) http.Header {
	if etag == "" {
		etag = "*"
	}
	h := http.Header{}
	h.Set("If-Match", etag)
	return h
}

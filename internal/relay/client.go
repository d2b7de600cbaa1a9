package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"veilchat/internal/domain"
)

// Client talks to one relay server.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client for the relay at base, e.g. "http://127.0.0.1:8080".
// A nil httpClient falls back to http.DefaultClient.
func New(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), http: httpClient}
}

var _ domain.RelayClient = (*Client)(nil)

type credentials struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
}

type authResponse struct {
	Token     string                   `json:"token"`
	Principal domain.PrincipalIdentity `json:"principal"`
}

func (c *Client) Register(ctx context.Context, handle, secret string) (string, domain.PrincipalIdentity, error) {
	var out authResponse
	err := c.post(ctx, "/v1/register", "", credentials{Handle: handle, Secret: secret}, &out)
	return out.Token, out.Principal, err
}

func (c *Client) Login(ctx context.Context, handle, secret string) (string, domain.PrincipalIdentity, error) {
	var out authResponse
	err := c.post(ctx, "/v1/login", "", credentials{Handle: handle, Secret: secret}, &out)
	return out.Token, out.Principal, err
}

func (c *Client) AddContact(ctx context.Context, token, handle string) (domain.PrincipalIdentity, error) {
	var out domain.PrincipalIdentity
	err := c.post(ctx, "/v1/contacts", token, struct {
		Handle string `json:"handle"`
	}{Handle: handle}, &out)
	return out, err
}

func (c *Client) Contacts(ctx context.Context, token string) ([]domain.PrincipalIdentity, error) {
	var out []domain.PrincipalIdentity
	if err := c.get(ctx, "/v1/contacts", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PublishBundle(ctx context.Context, token string, bundle domain.PrekeyBundle) error {
	return c.post(ctx, "/v1/keys", token, bundle, nil)
}

func (c *Client) ExchangeKeys(ctx context.Context, token, contactID string) (domain.PrekeyBundle, error) {
	var out struct {
		RecipientKeys domain.PrekeyBundle `json:"recipientKeys"`
	}
	err := c.post(ctx, "/v1/keys/exchange", token, struct {
		ContactID string `json:"contactId"`
	}{ContactID: contactID}, &out)
	return out.RecipientKeys, err
}

func (c *Client) History(ctx context.Context, token, contactID string) ([]domain.MessageEnvelope, error) {
	var out []domain.MessageEnvelope
	if err := c.get(ctx, "/v1/messages/"+url.PathEscape(contactID), token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path, token string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// statusError turns a non-2xx response into a taxonomy error carrying the
// server's message.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = domain.ErrInvalidInput
	case http.StatusUnauthorized:
		kind = domain.ErrUnauthenticated
	case http.StatusNotFound:
		kind = domain.ErrNotFound
	case http.StatusConflict:
		kind = domain.ErrConflict
	case http.StatusUnprocessableEntity:
		kind = domain.ErrIntegrity
	default:
		kind = domain.ErrStoreUnavailable
	}
	return fmt.Errorf("relay: %s: %w", msg, kind)
}

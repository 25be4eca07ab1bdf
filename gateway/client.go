package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/engine"
	"github.com/elimucloud/dawati/core/resource"
	"github.com/elimucloud/dawati/core/session"
)

type (
	Options struct {
		BaseURL string
		Timeout time.Duration
		Session *session.Session
	}

	// Client is the HTTP network client behind the engine: one resource
	// endpoint shape shared by all kinds, bearer credential on every call.
	Client struct {
		base *url.URL
		http *http.Client
		sess *session.Session
	}

	ackResponse struct {
		OK bool `json:"ok"`
	}
)

var _ engine.Gateway = (*Client)(nil)

func NewClient(opts *Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing base URL %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		sess: opts.Session,
	}, nil
}

func (c *Client) List(ctx context.Context, kind resource.Kind, includeDeleted bool) ([]resource.Record, error) {
	path := fmt.Sprintf("/v1/list/%s", kind)
	if includeDeleted {
		path += "?include_deleted=true"
	}
	var records []resource.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) Get(ctx context.Context, kind resource.Kind, id string) (*resource.Record, error) {
	rec := new(resource.Record)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/get/%s/%s", kind, id), nil, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) Create(ctx context.Context, kind resource.Kind, payload resource.NewRecord) (*engine.Response, error) {
	return c.exchange(ctx, http.MethodPost, fmt.Sprintf("/v1/create/%s", kind), payload)
}

func (c *Client) Edit(ctx context.Context, kind resource.Kind, payload resource.EditRecord) (*engine.Response, error) {
	return c.exchange(ctx, http.MethodPost, fmt.Sprintf("/v1/edit/%s", kind), payload)
}

func (c *Client) Transition(ctx context.Context, kind resource.Kind, id string, tr resource.Transition, payload interface{}) (*engine.Response, error) {
	body := map[string]interface{}{"id": id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encoding transition payload")
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, errors.Wrap(err, "encoding transition payload")
		}
		body["id"] = id
	}
	return c.exchange(ctx, http.MethodPost, fmt.Sprintf("/v1/transition/%s/%s", kind, tr), body)
}

func (c *Client) Delete(ctx context.Context, kind resource.Kind, id string) (*engine.Response, error) {
	return c.exchange(ctx, http.MethodDelete, fmt.Sprintf("/v1/%s", kind), map[string]string{"id": id})
}

// Login exchanges credentials for a bearer token. Used by sign-in
// collaborators (e.g. the admin CLI); the engine itself never calls it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/login", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// exchange runs a mutation call and decodes the response into either a full
// record projection or a bare acknowledgement.
func (c *Client) exchange(ctx context.Context, method, path string, body interface{}) (*engine.Response, error) {
	var raw json.RawMessage
	if err := c.do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}

	var ack ackResponse
	if err := json.Unmarshal(raw, &ack); err == nil && ack.OK {
		return &engine.Response{Ack: true}, nil
	}
	rec := new(resource.Record)
	if err := json.Unmarshal(raw, rec); err != nil || rec.ID == "" {
		return nil, core.WrapFailure(core.FailureTransient, err, "undecodable mutation response")
	}
	return &engine.Response{Record: rec}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token, err := c.sess.Token(ctx); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// timeouts and transport errors carry no semantic meaning
		return core.WrapFailure(core.FailureTransient, err, "network error")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.WrapFailure(core.FailureTransient, err, "reading response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return failureFromStatus(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return core.WrapFailure(core.FailureTransient, err, "decoding response")
		}
	}
	return nil
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// failureFromStatus maps the server's verdict onto the failure taxonomy.
func failureFromStatus(status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	if er.Error == "" {
		er.Error = http.StatusText(status)
	}

	f := &core.Failure{Message: er.Error}
	for field, msg := range er.Fields {
		f.Fields = append(f.Fields, core.FieldError{Field: field, Error: msg})
	}

	switch {
	case status == http.StatusUnauthorized:
		f.Kind = core.FailureUnauthenticated
	case status == http.StatusForbidden:
		f.Kind = core.FailureUnauthorized
	case status == http.StatusNotFound:
		f.Kind = core.FailureNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		f.Kind = core.FailureValidation
	default:
		f.Kind = core.FailureTransient
	}
	return f
}

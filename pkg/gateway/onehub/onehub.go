// Package onehub implements gateway.Gateway against the OneHub admin API.
package onehub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lkarlslund/channelsync/pkg/gateway"
	"github.com/lkarlslund/channelsync/pkg/session"
)

const Name = "onehub"

const (
	pathSelf           = "/api/user/self"
	pathLogin          = "/api/user/login"
	pathChannels       = "/api/channel/"
	pathProviderModels = "/api/channel/provider_models_list"
)

type Client struct {
	sess *session.Session
}

func New(baseURL string, opts ...session.Option) (*Client, error) {
	sess, err := session.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{sess: sess}, nil
}

var _ gateway.Gateway = (*Client)(nil)

func (c *Client) Name() string { return Name }

// call performs one request and unwraps the {success, message, data} envelope.
// Every failure is logged here so callers only need to branch on the error.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body []byte) (gjson.Result, error) {
	resp, err := c.sess.Do(ctx, method, path, query, body)
	if err != nil {
		return gjson.Result{}, c.fail(op, fmt.Errorf("%s: %w", op, err))
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, c.fail(op, &gateway.HTTPError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       errorBody(resp.Body),
		})
	}
	if !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, c.fail(op, fmt.Errorf("%s: %w: body is not json", op, gateway.ErrMalformed))
	}
	env := gjson.ParseBytes(resp.Body)
	success := env.Get("success")
	if success.Type != gjson.True && success.Type != gjson.False {
		return gjson.Result{}, c.fail(op, fmt.Errorf("%s: %w: missing success flag", op, gateway.ErrMalformed))
	}
	if !success.Bool() {
		return gjson.Result{}, c.fail(op, &gateway.APIError{Op: op, Message: env.Get("message").String()})
	}
	return env.Get("data"), nil
}

func (c *Client) fail(op string, err error) error {
	slog.Error(op+" failed", "backend", Name, "err", err)
	return err
}

// errorBody prefers the envelope message of an error page over the raw body.
func errorBody(b []byte) string {
	if gjson.ValidBytes(b) {
		if msg := gjson.GetBytes(b, "message"); msg.Exists() {
			return strings.TrimSpace(msg.String())
		}
	}
	s := strings.TrimSpace(string(b))
	if len(s) > 1024 {
		s = s[:1024]
	}
	return s
}

func (c *Client) CheckLogin(ctx context.Context) (string, error) {
	slog.Debug("checking login status", "backend", Name)
	data, err := c.call(ctx, "check login", http.MethodGet, pathSelf, nil, nil)
	if err != nil {
		return "", err
	}
	user := data.Get("username").String()
	if user == "" {
		user = "unknown user"
	}
	slog.Info("login verified", "backend", Name, "user", user)
	return user, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	query := url.Values{"turnstile": []string{""}}
	if _, err := c.call(ctx, "login", http.MethodPost, pathLogin, query, body); err != nil {
		return err
	}
	slog.Info("login succeeded", "backend", Name, "user", username)
	return nil
}

func (c *Client) ListChannels(ctx context.Context, q gateway.ChannelQuery) (*gateway.ChannelPage, error) {
	const op = "list channels"
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("size", strconv.Itoa(q.Size))
	query.Set("type", strconv.Itoa(q.Type))
	query.Set("status", strconv.Itoa(q.Status))
	data, err := c.call(ctx, op, http.MethodGet, pathChannels, query, nil)
	if err != nil {
		return nil, err
	}
	if !data.IsObject() {
		return nil, c.fail(op, fmt.Errorf("%s: %w: data is not an object", op, gateway.ErrMalformed))
	}
	items := data.Get("data")
	if !items.Exists() {
		return nil, c.fail(op, fmt.Errorf("%s: %w: missing data field", op, gateway.ErrMalformed))
	}
	page := &gateway.ChannelPage{}
	// A null list is how OneHub reports a page past the end.
	if items.Type == gjson.Null {
		return page, nil
	}
	if !items.IsArray() {
		return nil, c.fail(op, fmt.Errorf("%s: %w: data is not a list", op, gateway.ErrMalformed))
	}
	total := data.Get("total_count")
	if total.Type != gjson.Number {
		return nil, c.fail(op, fmt.Errorf("%s: %w: missing total_count", op, gateway.ErrMalformed))
	}
	page.TotalCount = int(total.Int())
	for _, item := range items.Array() {
		ch, err := gateway.ParseChannel([]byte(item.Raw))
		if err != nil {
			return nil, c.fail(op, fmt.Errorf("%s: %w", op, err))
		}
		page.Channels = append(page.Channels, *ch)
	}
	return page, nil
}

func (c *Client) GetChannel(ctx context.Context, id int) (*gateway.Channel, error) {
	const op = "get channel"
	data, err := c.call(ctx, op, http.MethodGet, pathChannels+strconv.Itoa(id), nil, nil)
	if err != nil {
		return nil, err
	}
	ch, err := gateway.ParseChannel([]byte(data.Raw))
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("%s %d: %w", op, id, err))
	}
	return ch, nil
}

func (c *Client) ProviderModels(ctx context.Context, ch *gateway.Channel) ([]string, error) {
	const op = "provider models"
	body, err := ch.ProbePayload()
	if err != nil {
		return nil, err
	}
	data, err := c.call(ctx, op, http.MethodPost, pathProviderModels, nil, body)
	if err != nil {
		return nil, err
	}
	if data.Type == gjson.Null || !data.Exists() {
		return nil, nil
	}
	if !data.IsArray() {
		return nil, c.fail(op, fmt.Errorf("%s: %w: data is not a list", op, gateway.ErrMalformed))
	}
	arr := data.Array()
	models := make([]string, 0, len(arr))
	for _, m := range arr {
		models = append(models, m.String())
	}
	return models, nil
}

func (c *Client) UpdateChannel(ctx context.Context, ch *gateway.Channel, models string) error {
	body, err := ch.UpdatePayload(models)
	if err != nil {
		return err
	}
	if _, err := c.call(ctx, "update channel", http.MethodPut, pathChannels, nil, body); err != nil {
		return err
	}
	slog.Debug("channel updated", "backend", Name, "channel", ch.ID)
	return nil
}

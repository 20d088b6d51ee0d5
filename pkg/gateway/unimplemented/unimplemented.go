// Package unimplemented provides placeholder back-ends. Every operation fails
// with gateway.ErrUnsupported so callers can tell an unsupported back-end apart
// from an ordinary remote failure.
package unimplemented

import (
	"context"

	"github.com/lkarlslund/channelsync/pkg/gateway"
)

const (
	OneAPI = "oneapi"
	NewAPI = "newapi"
)

type Gateway struct {
	backend string
}

var _ gateway.Gateway = (*Gateway)(nil)

func New(backend string) *Gateway {
	return &Gateway{backend: backend}
}

func (g *Gateway) Name() string { return g.backend }

func (g *Gateway) unsupported(op string) error {
	return &gateway.UnsupportedError{Backend: g.backend, Op: op}
}

func (g *Gateway) CheckLogin(context.Context) (string, error) {
	return "", g.unsupported("check login")
}

func (g *Gateway) Login(context.Context, string, string) error {
	return g.unsupported("login")
}

func (g *Gateway) ListChannels(context.Context, gateway.ChannelQuery) (*gateway.ChannelPage, error) {
	return nil, g.unsupported("list channels")
}

func (g *Gateway) GetChannel(context.Context, int) (*gateway.Channel, error) {
	return nil, g.unsupported("get channel")
}

func (g *Gateway) ProviderModels(context.Context, *gateway.Channel) ([]string, error) {
	return nil, g.unsupported("provider models")
}

func (g *Gateway) UpdateChannel(context.Context, *gateway.Channel, string) error {
	return g.unsupported("update channel")
}

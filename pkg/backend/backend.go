// Package backend maps a configured client type to its gateway implementation.
package backend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lkarlslund/channelsync/pkg/gateway"
	"github.com/lkarlslund/channelsync/pkg/gateway/onehub"
	"github.com/lkarlslund/channelsync/pkg/gateway/unimplemented"
	"github.com/lkarlslund/channelsync/pkg/session"
)

const Default = onehub.Name

type factory func(baseURL string, opts ...session.Option) (gateway.Gateway, error)

var factories = map[string]factory{
	onehub.Name: func(baseURL string, opts ...session.Option) (gateway.Gateway, error) {
		c, err := onehub.New(baseURL, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
	unimplemented.OneAPI: stub(unimplemented.OneAPI),
	unimplemented.NewAPI: stub(unimplemented.NewAPI),
}

func stub(kind string) factory {
	return func(string, ...session.Option) (gateway.Gateway, error) {
		return unimplemented.New(kind), nil
	}
}

type UnknownError struct {
	Kind string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unsupported backend %q (supported: %s)", e.Kind, strings.Join(Kinds(), ", "))
}

// Kinds lists the accepted client types.
func Kinds() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the gateway for kind. Matching is case-insensitive and an empty
// kind selects Default; anything else is rejected.
func New(kind, baseURL string, opts ...session.Option) (gateway.Gateway, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = Default
	}
	f, ok := factories[kind]
	if !ok {
		return nil, &UnknownError{Kind: kind}
	}
	return f(baseURL, opts...)
}

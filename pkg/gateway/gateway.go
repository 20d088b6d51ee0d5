// Package gateway defines the contract every admin-panel back-end implements and
// the channel model refresh workflow built on top of it.
package gateway

import (
	"context"
)

// Gateway is the set of remote operations a back-end exposes. Implementations
// log their own failures and return typed errors (see errors.go); callers are
// expected to treat any error other than ErrUnsupported as "operation failed".
//
// A Gateway owns mutable session state and is not safe for concurrent use.
type Gateway interface {
	// Name returns the back-end selector, e.g. "onehub".
	Name() string
	// CheckLogin validates the bearer token installed on the session by probing
	// the "who am I" endpoint and returns the identified username.
	CheckLogin(ctx context.Context) (string, error)
	// Login exchanges username and password for a session cookie.
	Login(ctx context.Context, username, password string) error
	ListChannels(ctx context.Context, q ChannelQuery) (*ChannelPage, error)
	GetChannel(ctx context.Context, id int) (*Channel, error)
	// ProviderModels asks the gateway to probe the upstream provider with the
	// channel's current configuration and returns the live model catalog.
	ProviderModels(ctx context.Context, ch *Channel) ([]string, error)
	// UpdateChannel pushes ch with its models replaced by the comma separated list.
	UpdateChannel(ctx context.Context, ch *Channel, models string) error
}

// ChannelQuery holds the list filter. Status 0 matches every status.
type ChannelQuery struct {
	Page   int
	Size   int
	Type   int
	Status int
}

type ChannelPage struct {
	Channels   []Channel
	TotalCount int
}

// Credentials selects the authentication path: a non-empty Token wins and is
// validated with CheckLogin, otherwise Username/Password go through Login.
type Credentials struct {
	Token    string
	Username string
	Password string
}

// Authenticate runs the login flow chosen by creds and returns the username the
// gateway identified. A configured token never falls back to password login.
func Authenticate(ctx context.Context, gw Gateway, creds Credentials) (string, error) {
	if creds.Token != "" {
		user, err := gw.CheckLogin(ctx)
		if err != nil {
			return "", &AuthError{Method: "token", Err: err}
		}
		return user, nil
	}
	if err := gw.Login(ctx, creds.Username, creds.Password); err != nil {
		return "", &AuthError{Method: "password", Err: err}
	}
	return creds.Username, nil
}

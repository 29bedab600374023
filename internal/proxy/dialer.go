package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	netproxy "golang.org/x/net/proxy"
)

// Dialer routes probe connections either directly or through a SOCKS pivot,
// which is how assessors reach SMTP servers on internal networks. One Dialer
// is shared by all probe workers; each probe still owns its own connection.
type Dialer struct {
	forward netproxy.ContextDialer
}

// New builds a dialer. An empty URL means direct TCP. The URL scheme decides
// the proxy protocol (socks5://host:port, with optional userinfo).
func New(rawURL string, timeout time.Duration) (*Dialer, error) {
	base := &net.Dialer{Timeout: timeout}
	if rawURL == "" {
		return &Dialer{forward: base}, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", rawURL, err)
	}
	pd, err := netproxy.FromURL(u, base)
	if err != nil {
		return nil, fmt.Errorf("unsupported proxy %q: %w", rawURL, err)
	}

	cd, ok := pd.(netproxy.ContextDialer)
	if !ok {
		cd = plainDialer{pd}
	}
	return &Dialer{forward: cd}, nil
}

func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d.forward.DialContext(ctx, network, addr)
}

// plainDialer adapts a proxy dialer that predates contexts; the connect
// timeout of the underlying net.Dialer still applies.
type plainDialer struct {
	d netproxy.Dialer
}

func (p plainDialer) DialContext(_ context.Context, network, addr string) (net.Conn, error) {
	return p.d.Dial(network, addr)
}

// ABOUTME: SSH+SOCKS5 tunnel for reaching a backend behind a jumpbox
// ABOUTME: Builds a DialContext from an ssh+socks5:// URL using cloudfoundry/socks5-proxy

package client

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cloudfoundry/socks5-proxy"
)

// dialContextFunc matches http.Transport.DialContext
type dialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// proxySettings is a parsed ssh+socks5:// URL
type proxySettings struct {
	username string
	host     string
	keyPath  string
}

// parseProxyURL parses ssh+socks5://user@host:port?private-key=/path/to/key
func parseProxyURL(allProxy string) (*proxySettings, error) {
	allProxy = strings.TrimPrefix(allProxy, "ssh+")

	proxyURL, err := url.Parse(allProxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if proxyURL.Scheme != "socks5" {
		return nil, fmt.Errorf("unsupported proxy scheme %q (must be ssh+socks5)", proxyURL.Scheme)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("proxy URL is missing a host")
	}

	queryMap, err := url.ParseQuery(proxyURL.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy query params: %w", err)
	}

	keyPath := queryMap.Get("private-key")
	if keyPath == "" {
		return nil, fmt.Errorf("proxy URL missing required 'private-key' query param")
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	return &proxySettings{username: username, host: proxyURL.Host, keyPath: keyPath}, nil
}

// newSOCKS5DialContext creates a dial function that tunnels through the SSH
// jumpbox. The SSH connection is established lazily on first dial.
func newSOCKS5DialContext(allProxy string) (dialContextFunc, error) {
	settings, err := parseProxyURL(allProxy)
	if err != nil {
		return nil, err
	}

	key, err := os.ReadFile(settings.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key: %w", err)
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		d := dialer
		mut.RUnlock()

		if d != nil {
			return d(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			proxyDialer, err := socks5Proxy.Dialer(settings.username, string(key), settings.host)
			if err != nil {
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = proxyDialer
		}
		return dialer(network, address)
	}, nil
}

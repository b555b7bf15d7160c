// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"

	"github.com/eclipse/paho.golang/packets"
	"github.com/gorilla/websocket"
)

// ConnectionProvider is a function that returns a net.Conn connected to an
// MQTT server that is ready to read to and write from. Note that the returned
// net.Conn must be thread-safe (i.e., concurrent Write calls must not
// interleave)
type ConnectionProvider func(context.Context) (net.Conn, error)

// TCPConnectionProvider is a ConnectionProvider that connects to an MQTT
// server over TCP.
func TCPConnectionProvider(hostname string, port int) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", hostname, port))
		if err != nil {
			return nil, &ConnectionError{
				message:      "error opening TCP connection",
				wrappedError: err,
			}
		}
		return conn, nil
	}
}

// TLSConfigProvider is a function that returns a *tls.Config to be used when
// opening a TLS connection to an MQTT server. See tls.Config for more
// information on TLS configuration options.
type TLSConfigProvider func(context.Context) (*tls.Config, error)

// constantTLSConfigProvider is a TLSConfigProvider that returns an unchanging
// *tls.Config. This can be used if the TLS configuration does not need to be
// updated between network connections to the MQTT server. Note that this is
// unexported because users should not call this directly and instead use
// TLSConnectionProviderWithConfig.
func constantTLSConfigProvider(config *tls.Config) TLSConfigProvider {
	return func(ctx context.Context) (*tls.Config, error) {
		return config, nil
	}
}

// TLSConnectionProviderWithConfigProvider is a ConnectionProvider that
// connects to an MQTT server with TLS over TCP given a TLSConfigProvider.
// This is an advanced option that most users will not need to use. Consider
// using TLSConnectionProviderWithConfig instead.
func TLSConnectionProviderWithConfigProvider(hostname string, port int, tlsConfigProvider TLSConfigProvider) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		config, err := tlsConfigProvider(ctx)
		if err != nil {
			return nil, &ConnectionError{
				message:      "error getting TLS configuration",
				wrappedError: err,
			}
		}

		d := tls.Dialer{Config: config}
		conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", hostname, port))
		if err != nil {
			return nil, &ConnectionError{
				message:      "error opening TLS connection",
				wrappedError: err,
			}
		}
		return packets.NewThreadSafeConn(conn), nil
	}
}

// TLSConnectionProviderWithConfig is a ConnectionProvider that connects to an
// MQTT server with TLS over TCP given an unchanging *tls.Config. A nil config
// is equivalent to the a zero config. See tls.Config for more information on
// TLS configuration options.
func TLSConnectionProviderWithConfig(hostname string, port int, config *tls.Config) ConnectionProvider {
	return TLSConnectionProviderWithConfigProvider(hostname, port, constantTLSConfigProvider(config))
}

// WebSocketConnectionProvider is a ConnectionProvider that connects to an
// MQTT server over WebSocket (ws:// or wss://), as selected by serverURL's
// scheme. A nil tlsConfig is only meaningful for the wss:// scheme.
func WebSocketConnectionProvider(serverURL string, tlsConfig *tls.Config) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		dialer := &websocket.Dialer{
			TLSClientConfig: tlsConfig,
			Subprotocols:    []string{"mqtt"},
		}
		conn, _, err := dialer.DialContext(ctx, serverURL, nil)
		if err != nil {
			return nil, &ConnectionError{
				message:      "error opening WebSocket connection",
				wrappedError: err,
			}
		}
		return packets.NewThreadSafeConn(wsNetConn{conn}), nil
	}
}

// wsNetConn adapts a *websocket.Conn to net.Conn so it can be used as the
// transport for an MQTT client, which speaks a raw byte stream rather than
// WebSocket's framed messages.
type wsNetConn struct {
	*websocket.Conn
}

func (c wsNetConn) Read(b []byte) (int, error) {
	_, r, err := c.Conn.NextReader()
	if err != nil {
		return 0, err
	}
	return r.Read(b)
}

func (c wsNetConn) Write(b []byte) (int, error) {
	if err := c.Conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// buildNetConn opens a transport-level connection to serverURL, dispatching
// on its scheme (tcp/mqtt, tls/ssl/mqtts, ws, wss).
func buildNetConn(
	ctx context.Context,
	serverURL string,
	tlsConfig *tls.Config,
) (net.Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, &InvalidArgumentError{
			message:      "server URL is not valid",
			wrappedError: err,
		}
	}

	host := u.Hostname()
	port := u.Port()

	switch u.Scheme {
	case "", "tcp", "mqtt":
		return TCPConnectionProvider(host, atoiOrZero(port))(ctx)

	case "tls", "ssl", "mqtts":
		return TLSConnectionProviderWithConfig(host, atoiOrZero(port), tlsConfig)(ctx)

	case "ws", "wss":
		return WebSocketConnectionProvider(serverURL, tlsConfig)(ctx)

	default:
		return nil, &InvalidArgumentError{
			message: fmt.Sprintf("unsupported server URL scheme %q", u.Scheme),
		}
	}
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

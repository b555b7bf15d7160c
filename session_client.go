// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"crypto/tls"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-mqtt/sessionclient/internal"
	"github.com/go-mqtt/sessionclient/retrypolicy"
	"github.com/eclipse/paho.golang/paho/session"
	"github.com/eclipse/paho.golang/paho/session/state"
)

type (
	// SessionClient implements an MQTT Session client supporting MQTT v5 with
	// QoS 0 and QoS 1 support.
	SessionClient struct {
		// Used to ensure Start() is called only once and that user operations
		// are only started after Start() is called.
		sessionStarted atomic.Bool

		// Used to ensure Stop() tears down background goroutines only once;
		// a repeat call reports ShutDown instead of closing c.shutdown again.
		sessionStopped atomic.Bool

		// Used internally to signal client shutdown for cleaning up
		// background goroutines and inflight operations, and to let other
		// goroutines (Publish, Subscribe, Unsubscribe) tie their context to
		// the client's lifetime.
		shutdown *internal.Background

		// Tracks the live Paho client instance across reconnections.
		conn *internal.ConnectionTracker[PahoClient]

		// A list of functions that listen for incoming publishes.
		incomingPublishHandlers *internal.AppendableListWithRemoval[func(incomingPublish) bool]

		// A list of functions that are called in order to notify the user of
		// successful MQTT connections.
		connectEventHandlers *internal.AppendableListWithRemoval[ConnectEventHandler]

		// A list of functions that are called in order to notify the user of
		// a disconnection from the MQTT server.
		disconnectEventHandlers *internal.AppendableListWithRemoval[DisconnectEventHandler]

		// A list of functions that are called in goroutines to notify the
		// user of a SessionClient termination due to a fatal error.
		fatalErrorHandlers *internal.AppendableListWithRemoval[func(error)]

		// Buffered channel containing the PUBLISH packets to be sent.
		outgoingPublishes    chan *outgoingPublish
		publishQueueCapacity int

		// Paho's internal MQTT session tracker.
		session session.SessionManager

		connSettings *connectionSettings
		connRetry    retrypolicy.RetryPolicy

		// pahoConstructor builds the underlying Paho client for each
		// connection attempt. Defaults to c.defaultPahoConstructor;
		// overridable for testing via WithPahoConstructor.
		pahoConstructor PahoConstructor

		// authProvider drives an MQTT Enhanced Authentication exchange, if
		// configured. Nil means no enhanced authentication is performed.
		authProvider EnhancedAuthenticationProvider

		log internal.Logger
	}

	connectionSettings struct {
		clientID string
		// serverURL would be parsed into url.URL.
		serverURL string

		// userNameProvider and passwordProvider are consulted on every
		// connection attempt, so credentials can be rotated (e.g. a SAS
		// token refreshed between reconnects) without reconstructing the
		// client. Default to providers that send neither flag.
		userNameProvider UserNameProvider
		passwordProvider PasswordProvider

		// CleanStart is requested only on the very first connection attempt
		// (generation 0), and only if firstConnectionCleanStart is true.
		// Every reconnect after a successful CONNACK always resumes the
		// existing session (CleanStart=false). Set to false to resume a
		// session that predates this SessionClient instance.
		firstConnectionCleanStart bool

		// If keepAlive is 0,the Client is not obliged to send
		// MQTT Control Packets on any particular schedule.
		keepAlive time.Duration
		// If sessionExpiry is absent, its value 0 is used.
		sessionExpiry time.Duration
		// If receiveMaximum value is absent, its value defaults to 65,535.
		receiveMaximum uint16
		// If connectionTimeout is 0, connection will have no timeout.
		// Note the connectionTimeout would work with retrypolicy `connRetry`.
		connectionTimeout time.Duration
		userProperties    map[string]string

		// TLS transport protocol.
		useTLS bool
		// User can provide either a complete TLS configuration
		// or specify individual TLS parameters.
		// If both are provided, the individual parameters will take precedence.
		tlsConfig *tls.Config
		// Path to the client certificate file (PEM-encoded).
		certFile string
		// keyFilePassword would allow loading
		// an RFC 7468 PEM-encoded certificate
		// along with its password-protected private key,
		// similar to the .NET method CreateFromEncryptedPemFile.
		keyFile         string
		keyFilePassword string
		// Path to the certificate authority (CA) file (PEM-encoded).
		caFile string
		// TODO: check the revocation status of the CA.
		caRequireRevocationCheck bool

		// Last Will and Testament (LWT) option.
		willMessage    *WillMessage
		willProperties *WillProperties
	}
)

// NewSessionClient constructs a new session client with user options.
func NewSessionClient(
	serverURL string,
	opts ...SessionClientOption,
) (*SessionClient, error) {
	client := &SessionClient{}

	// Default client options.
	client.initialize()

	// Only required client setting.
	client.connSettings.serverURL = serverURL

	// User client settings.
	for _, opt := range opts {
		opt(client)
	}

	// Validate connection settings.
	if err := client.connSettings.validate(); err != nil {
		return nil, err
	}

	client.outgoingPublishes = make(chan *outgoingPublish, client.publishQueueCapacity)

	return client, nil
}

// NewSessionClientFromConnectionString constructs a new session client
// from an user-defined connection string.
func NewSessionClientFromConnectionString(
	connStr string,
	opts ...SessionClientOption,
) (*SessionClient, error) {
	connSettings := &connectionSettings{}
	if err := connSettings.fromConnectionString(connStr); err != nil {
		return nil, err
	}

	return NewSessionClient(
		connSettings.serverURL,
		append([]SessionClientOption{withConnSettings(connSettings)}, opts...)...,
	)
}

// NewSessionClientFromEnv constructs a new session client
// from user's environment variables.
func NewSessionClientFromEnv(opts ...SessionClientOption) (*SessionClient, error) {
	connSettings := &connectionSettings{}
	if err := connSettings.fromEnv(); err != nil {
		return nil, err
	}

	return NewSessionClient(
		connSettings.serverURL,
		append([]SessionClientOption{withConnSettings(connSettings)}, opts...)...,
	)
}

func (c *SessionClient) ClientID() string {
	return c.connSettings.clientID
}

// initialize sets all default configurations
// to ensure the SessionClient is properly initialized.
func (c *SessionClient) initialize() {
	c.conn = internal.NewConnectionTracker[PahoClient]()

	c.incomingPublishHandlers = internal.NewAppendableListWithRemoval[func(incomingPublish) bool]()
	c.connectEventHandlers = internal.NewAppendableListWithRemoval[ConnectEventHandler]()
	c.disconnectEventHandlers = internal.NewAppendableListWithRemoval[DisconnectEventHandler]()
	c.fatalErrorHandlers = internal.NewAppendableListWithRemoval[func(error)]()

	c.publishQueueCapacity = defaultPublishQueueCapacity

	c.session = state.NewInMemory()

	c.connRetry = retrypolicy.NewExponentialBackoffRetryPolicy()
	c.connSettings = &connectionSettings{
		clientID: randomClientID(),
		// If receiveMaximum is 0, we can't establish connection.
		receiveMaximum: defaultReceiveMaximum,

		userNameProvider: defaultUserNameProvider,
		passwordProvider: defaultPasswordProvider,

		firstConnectionCleanStart: true,
	}

	c.pahoConstructor = c.defaultPahoConstructor
	c.log = internal.Logger{Wrapped: slog.Default()}
}

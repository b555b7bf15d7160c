// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"log/slog"
	"math"

	"github.com/go-mqtt/sessionclient/internal"
	"github.com/go-mqtt/sessionclient/retrypolicy"
	"github.com/eclipse/paho.golang/paho"
)

// RegisterConnectEventHandler registers a handler to a list of handlers that
// are called synchronously in registration order whenever the session client
// successfully establishes an MQTT connection. Note that since the handler
// gets called synchronously, handlers should not block for an extended period
// of time to avoid blocking the session client.
func (c *SessionClient) RegisterConnectEventHandler(
	handler ConnectEventHandler,
) (unregisterHandler func()) {
	return c.connectEventHandlers.AppendEntry(handler)
}

// RegisterDisconnectEventHandler registers a handler to a list of handlers that
// are called synchronously in registration order whenever the session client
// detects a disconnection from the MQTT server. Note that since the handler
// gets called synchronously, handlers should not block for an extended period
// of time to avoid blocking the session client.
func (c *SessionClient) RegisterDisconnectEventHandler(
	handler DisconnectEventHandler,
) (unregisterHandler func()) {
	return c.disconnectEventHandlers.AppendEntry(handler)
}

// RegisterFatalErrorHandler registers a handler that is called in a goroutine
// if the session client terminates due to a fatal error.
func (c *SessionClient) RegisterFatalErrorHandler(
	handler func(error),
) (unregisterHandler func()) {
	return c.fatalErrorHandlers.AppendEntry(handler)
}

// Start starts the session client, spawning any necessary background
// goroutines. In order to terminate the session client and clean up any
// running goroutines, Stop() must be called after calling Start().
func (c *SessionClient) Start() error {
	if !c.sessionStarted.CompareAndSwap(false, true) {
		return &ClientStateError{State: Started}
	}

	ctx, shutdown := internal.NewBackground(&ClientStateError{State: ShutDown})
	c.shutdown = shutdown

	go func() {
		defer c.shutdown.Close()
		if err := c.manageConnection(ctx); err != nil {
			c.log.Error(ctx, err)
			for handler := range c.fatalErrorHandlers.All() {
				go handler(err)
			}
		}
	}()

	go c.manageOutgoingPublishes(ctx)

	return nil
}

// Stop stops the session client, terminating any pending operations and
// cleaning up background goroutines. A second call to Stop returns a
// ClientStateError rather than repeating the shutdown.
func (c *SessionClient) Stop() error {
	if !c.sessionStarted.Load() {
		return &ClientStateError{State: NotStarted}
	}
	if !c.sessionStopped.CompareAndSwap(false, true) {
		return &ClientStateError{State: ShutDown}
	}
	c.shutdown.Close()
	c.log.Info(context.Background(), "stopped",
		slog.String("cause", c.shutdown.Err().Error()),
	)
	return nil
}

// Attempts an initial connection and then listens for disconnections to attempt
// reconnections. Blocks until the ctx is cancelled or the connection can no
// longer be maintained (due to a fatal error or retry policy exhaustion).
func (c *SessionClient) manageConnection(ctx context.Context) error {
	// On cleanup, send a DISCONNECT packet if possible and signal a
	// disconnection to other goroutines if needed.
	defer func() {
		pahoClient := c.conn.Current().Client
		if pahoClient == nil {
			return
		}
		c.forceDisconnect(ctx, pahoClient)
		c.signalDisconnection(ctx, &DisconnectEvent{})
	}()

	var reconnect bool
	for {
		var connack *paho.Connack
		err := c.connRetry.Start(ctx, c.log.Wrapped.Error, retrypolicy.Task{
			Name: "connect",
			Exec: func(ctx context.Context) error {
				var err error
				connack, err = c.connect(ctx, reconnect)
				return err
			},
			// Decide to retry depending on whether we consider this error to
			// be fatal. We don't wrap these errors, so we can use a simple
			// type-switch instead of Go error wrapping.
			Cond: func(err error) bool {
				switch err.(type) {
				case *InvalidArgumentError,
					*SessionLostError,
					*FatalConnackError,
					*FatalDisconnectError:
					return false
				default:
					return true
				}
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				// Shutting down; don't report the in-flight connection
				// error as a fatal failure.
				return nil
			}

			switch err.(type) {
			case *InvalidArgumentError,
				*SessionLostError,
				*FatalConnackError,
				*FatalDisconnectError:
				return err
			default:
				return &RetryFailureError{lastError: err}
			}
		}

		// NOTE: signalConnection and signalDisconnection must only be called
		// together in this loop to ensure ordering between the two.
		c.signalConnection(ctx, &ConnectEvent{ReasonCode: connack.ReasonCode})
		reconnect = true

		select {
		case <-c.conn.Current().Down():
			// Current paho instance got disconnected.
			switch err := c.conn.Current().Error.(type) {
			case *FatalDisconnectError:
				c.signalDisconnection(ctx, &DisconnectEvent{
					ReasonCode: &err.ReasonCode,
				})
				return err

			case *DisconnectError:
				c.signalDisconnection(ctx, &DisconnectEvent{
					ReasonCode: &err.ReasonCode,
				})

			default:
				c.signalDisconnection(ctx, &DisconnectEvent{
					Error: err,
				})
			}

		case <-ctx.Done():
			// Session client is shutting down.
			return nil
		}

		// if we get here, a reconnection will be attempted
	}
}

// Create an instance of a Paho client and attempts to connect it to the MQTT
// server. If the client is successfully connected, it is recorded on the
// connection tracker and the CONNACK is returned; otherwise the error is
// returned for the retry policy to classify.
func (c *SessionClient) connect(
	ctx context.Context,
	reconnect bool,
) (*paho.Connack, error) {
	attempt := c.conn.Attempt()

	cfg := &paho.ClientConfig{
		ClientID: c.connSettings.clientID,
		Session:  c.session,

		// Set Paho's packet timeout to the maximum possible value to
		// effectively disable it. We can still control any timeouts through the
		// contexts we pass into Paho.
		PacketTimeout: math.MaxInt64,

		// Disable automatic acking in Paho. The session client will manage acks
		// instead.
		EnableManualAcknowledgment: true,

		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			// attempt is the generation this client instance will be
			// assigned once CONNACK succeeds; this listener only ever runs
			// after that point.
			c.onPublishReceived(ctx, attempt),
		},

		OnServerDisconnect: func(d *paho.Disconnect) {
			if isFatalDisconnectReasonCode(d.ReasonCode) {
				c.conn.Disconnect(attempt, &FatalDisconnectError{d.ReasonCode})
			} else {
				c.conn.Disconnect(attempt, &DisconnectError{d.ReasonCode})
			}
		},

		OnClientError: func(err error) {
			c.conn.Disconnect(attempt, err)
		},
	}

	var authValues *AuthValues
	if c.authProvider != nil {
		var err error
		authValues, err = c.authProvider.InitiateAuthExchange(
			ctx, false, c.requestReauthentication,
		)
		if err != nil {
			return nil, err
		}
		cfg.AuthHandler = c.newAuthDriver()
	}

	pahoClient, err := c.pahoConstructor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userNameFlag, userName, err := c.connSettings.userNameProvider(ctx)
	if err != nil {
		return nil, &InvalidArgumentError{
			message:      "userNameProvider failed",
			wrappedError: err,
		}
	}

	passwordFlag, password, err := c.connSettings.passwordProvider(ctx)
	if err != nil {
		return nil, &InvalidArgumentError{
			message:      "passwordProvider failed",
			wrappedError: err,
		}
	}

	conn := buildConnectPacket(c.connSettings, attempt, credentials{
		userNameFlag: userNameFlag,
		userName:     userName,
		passwordFlag: passwordFlag,
		password:     password,
	}, authValues)

	// A non-zero connectionTimeout bounds the wait for CONNACK on this attempt.
	connectCtx := ctx
	if c.connSettings.connectionTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, c.connSettings.connectionTimeout)
		defer cancel()
	}
	c.log.Packet(ctx, "connect", conn)
	connack, err := pahoClient.Connect(connectCtx, conn)
	c.log.Packet(ctx, "connack", connack)

	switch {
	case connack == nil:
		// This assumes that all errors returned by Paho's connect method
		// without a CONNACK are non-fatal.
		return nil, err

	case isFatalConnackReasonCode(connack.ReasonCode):
		return nil, &FatalConnackError{connack.ReasonCode}

	case connack.ReasonCode >= 0x80:
		return nil, &ConnackError{connack.ReasonCode}

	case reconnect && !connack.SessionPresent:
		c.forceDisconnect(ctx, pahoClient)
		return nil, &SessionLostError{}

	default:
		if err := c.conn.Connect(pahoClient); err != nil {
			return nil, err
		}
		if c.authProvider != nil && connack.Properties.AuthMethod == "" {
			// The exchange concluded with the CONNACK itself (no AUTH
			// round trip), so Paho never calls Authenticated() on our
			// AuthHandler. Notify the provider directly.
			c.authProvider.AuthSuccess()
		}
		return connack, nil
	}
}

func (c *SessionClient) signalConnection(
	ctx context.Context,
	event *ConnectEvent,
) {
	c.log.Info(ctx, "connected",
		slog.Int("reason_code", int(event.ReasonCode)),
	)

	for handler := range c.connectEventHandlers.All() {
		handler(event)
	}
}

func (c *SessionClient) signalDisconnection(
	ctx context.Context,
	event *DisconnectEvent,
) {
	switch {
	case event.ReasonCode != nil:
		c.log.Warn(ctx, "disconnected",
			slog.Int("reason_code", int(*event.ReasonCode)),
		)

	case event.Error != nil:
		c.log.Warn(ctx, "disconnected",
			slog.String("error", event.Error.Error()),
		)

	default:
		c.log.Warn(ctx, "disconnected")
	}

	for handler := range c.disconnectEventHandlers.All() {
		handler(event)
	}
}

func (c *SessionClient) forceDisconnect(
	ctx context.Context,
	client PahoClient,
) {
	immediateSessionExpiry := uint32(0)
	disconn := &paho.Disconnect{
		ReasonCode: disconnectNormalDisconnection,
		Properties: &paho.DisconnectProperties{
			SessionExpiryInterval: &immediateSessionExpiry,
		},
	}
	c.log.Packet(ctx, "disconnect", disconn)
	_ = client.Disconnect(disconn)
}

func (c *SessionClient) defaultPahoConstructor(
	ctx context.Context,
	cfg *paho.ClientConfig,
) (PahoClient, error) {
	// Refresh TLS config for new connection.
	if err := c.connSettings.validateTLS(); err != nil {
		// TODO: this currently returns immediately if refreshing TLS config
		// fails. Do we want to instead attempt to connect with the stale TLS
		// config?
		return nil, err
	}

	conn, err := buildNetConn(
		ctx,
		c.connSettings.serverURL,
		c.connSettings.tlsConfig,
	)
	if err != nil {
		// buildNetConn returns an InvalidArgumentError (fatal to the retry
		// loop) for an unusable server URL and a ConnectionError otherwise.
		return nil, err
	}

	cfg.Conn = conn
	return paho.NewClient(*cfg), nil
}

// credentials carries the resolved MQTT User Name/Password for a single
// connection attempt, as returned by userNameProvider/passwordProvider.
type credentials struct {
	userNameFlag bool
	userName     string
	passwordFlag bool
	password     []byte
}

func buildConnectPacket(
	connSettings *connectionSettings,
	attempt uint64,
	creds credentials,
	authValues *AuthValues,
) *paho.Connect {
	// Bound checks have already been performed during the connection settings
	// initialization.
	sessionExpiryInterval := uint32(connSettings.sessionExpiry.Seconds())
	properties := paho.ConnectProperties{
		SessionExpiryInterval: &sessionExpiryInterval,
		ReceiveMaximum:        &connSettings.receiveMaximum,
		// https://docs.oasis-open.org/mqtt/mqtt/v5.0/os/mqtt-v5.0-os.html#_Toc3901053
		// We need user properties by default.
		RequestProblemInfo: true,
		User: internal.MapToUserProperties(
			connSettings.userProperties,
		),
	}

	if !authValues.Empty() {
		properties.AuthMethod = authValues.AuthenticationMethod
		properties.AuthData = authValues.AuthenticationData
	}

	// LWT.
	var willMessage *paho.WillMessage
	if connSettings.willMessage != nil {
		willMessage = &paho.WillMessage{
			Retain:  connSettings.willMessage.Retain,
			QoS:     connSettings.willMessage.QoS,
			Topic:   connSettings.willMessage.Topic,
			Payload: connSettings.willMessage.Payload,
		}
	}

	var willProperties *paho.WillProperties
	if connSettings.willProperties != nil {
		willDelayInterval := uint32(
			connSettings.willProperties.WillDelayInterval.Seconds(),
		)
		messageExpiry := uint32(
			connSettings.willProperties.MessageExpiry.Seconds(),
		)

		willProperties = &paho.WillProperties{
			WillDelayInterval: &willDelayInterval,
			PayloadFormat:     &connSettings.willProperties.PayloadFormat,
			MessageExpiry:     &messageExpiry,
			ContentType:       connSettings.willProperties.ContentType,
			ResponseTopic:     connSettings.willProperties.ResponseTopic,
			CorrelationData:   connSettings.willProperties.CorrelationData,
			User: internal.MapToUserProperties(
				connSettings.willProperties.User,
			),
		}
	}

	// attempt is the generation the connection will be assigned if this
	// CONNACK succeeds (see ConnectionTracker.Attempt); 1 means no prior
	// generation has ever connected, i.e. generation==0 in spec terms.
	cleanStart := connSettings.firstConnectionCleanStart && attempt == 1

	return &paho.Connect{
		ClientID:       connSettings.clientID,
		CleanStart:     cleanStart,
		Username:       creds.userName,
		UsernameFlag:   creds.userNameFlag,
		Password:       creds.password,
		PasswordFlag:   creds.passwordFlag,
		KeepAlive:      uint16(connSettings.keepAlive.Seconds()),
		WillMessage:    willMessage,
		WillProperties: willProperties,
		Properties:     &properties,
	}
}

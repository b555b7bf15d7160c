// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"time"

	"github.com/go-mqtt/sessionclient/internal"
	"github.com/go-mqtt/sessionclient/retrypolicy"
)

// SessionClientOption configures a SessionClient at construction time.
type SessionClientOption func(*SessionClient)

// WithLogger sets the logger for the MQTT session client.
func WithLogger(l *slog.Logger) SessionClientOption {
	return func(c *SessionClient) {
		c.log = internal.Logger{Wrapped: l}
	}
}

// WithAuthProvider configures the SessionClient to drive an MQTT Enhanced
// Authentication exchange using provider, both on the initial CONNECT and
// on any reconnection.
func WithAuthProvider(provider EnhancedAuthenticationProvider) SessionClientOption {
	return func(c *SessionClient) {
		c.authProvider = provider
	}
}

// WithPublishQueueCapacity sets the number of PUBLISH packets that may be
// queued awaiting delivery before Publish() returns PublishQueueFullError.
func WithPublishQueueCapacity(capacity int) SessionClientOption {
	return func(c *SessionClient) {
		c.publishQueueCapacity = capacity
	}
}

// ******CONNECTION******

// WithConnRetry sets connRetry for the MQTT session client.
func WithConnRetry(connRetry retrypolicy.RetryPolicy) SessionClientOption {
	return func(c *SessionClient) {
		c.connRetry = connRetry
	}
}

// withConnSettings sets connSettings for the MQTT session client. Note that
// this is not publicly exposed to users; it is used by
// NewSessionClientFromConnectionString and NewSessionClientFromEnv.
func withConnSettings(connSettings *connectionSettings) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings = connSettings
	}
}

// WithClientID sets clientID for the connection settings.
func WithClientID(clientID string) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.clientID = clientID
	}
}

// UserNameProvider returns the MQTT User Name Flag and User Name to use for
// the connection attempt in progress. If userNameFlag is false, userName is
// ignored. Consulted on every attempt, so a provider may rotate the value
// across reconnects.
type UserNameProvider func(ctx context.Context) (userNameFlag bool, userName string, err error)

// defaultUserNameProvider sends no MQTT User Name. Used when the client is
// not given a WithUserName/WithUserNameProvider option.
func defaultUserNameProvider(context.Context) (bool, string, error) {
	return false, "", nil
}

// constantUserNameProvider is a UserNameProvider that returns an unchanging
// User Name, used by WithUserName.
func constantUserNameProvider(userName string) UserNameProvider {
	return func(context.Context) (bool, string, error) {
		return true, userName, nil
	}
}

// WithUserNameProvider sets the UserNameProvider consulted for the MQTT User
// Name on every connection attempt. This is an advanced option; most callers
// whose User Name never changes should use WithUserName instead.
func WithUserNameProvider(provider UserNameProvider) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.userNameProvider = provider
	}
}

// WithUserName sets a constant MQTT User Name for each MQTT connection.
func WithUserName(userName string) SessionClientOption {
	return WithUserNameProvider(constantUserNameProvider(userName))
}

// PasswordProvider returns the MQTT Password Flag and Password to use for the
// connection attempt in progress. If passwordFlag is false, password is
// ignored. Consulted on every attempt, so a provider may rotate the value
// (e.g. re-reading a credential file) across reconnects.
type PasswordProvider func(ctx context.Context) (passwordFlag bool, password []byte, err error)

// defaultPasswordProvider sends no MQTT Password. Used when the client is not
// given a WithPassword/WithPasswordFile/WithPasswordProvider option.
func defaultPasswordProvider(context.Context) (bool, []byte, error) {
	return false, nil, nil
}

// constantPasswordProvider is a PasswordProvider that returns an unchanging
// Password, used by WithPassword.
func constantPasswordProvider(password []byte) PasswordProvider {
	return func(context.Context) (bool, []byte, error) {
		return true, password, nil
	}
}

// filePasswordProvider re-reads filename on every connection attempt, so a
// rotated credential is picked up on the next reconnect. Used by
// WithPasswordFile.
func filePasswordProvider(filename string) PasswordProvider {
	return func(context.Context) (bool, []byte, error) {
		data, err := os.ReadFile(filename)
		if err != nil {
			return false, nil, err
		}
		return true, data, nil
	}
}

// WithPasswordProvider sets the PasswordProvider consulted for the MQTT
// Password on every connection attempt. This is an advanced option; most
// callers should use WithPassword or WithPasswordFile instead.
func WithPasswordProvider(provider PasswordProvider) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.passwordProvider = provider
	}
}

// WithPassword sets a constant MQTT Password for each MQTT connection.
func WithPassword(password []byte) SessionClientOption {
	return WithPasswordProvider(constantPasswordProvider(password))
}

// WithPasswordFile sets up the SessionClient to read an MQTT Password from
// the given filename on each connection attempt.
func WithPasswordFile(filename string) SessionClientOption {
	return WithPasswordProvider(filePasswordProvider(filename))
}

// WithFirstConnectionCleanStart controls whether the very first connection
// attempt (before any session has been established by this SessionClient
// instance) requests CleanStart. Every reconnect after a successful CONNACK
// always resumes the existing session regardless of this setting. Defaults
// to true; set to false to resume a session that predates this instance.
func WithFirstConnectionCleanStart(cleanStart bool) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.firstConnectionCleanStart = cleanStart
	}
}

// WithKeepAlive sets the keepAlive interval for the MQTT connection.
func WithKeepAlive(keepAlive time.Duration) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.keepAlive = keepAlive
	}
}

// WithSessionExpiry sets the sessionExpiry for the connection settings.
func WithSessionExpiry(sessionExpiry time.Duration) SessionClientOption {
	return func(c *SessionClient) {
		// Provide a convenient way for the user to request the session never
		// expire, since that is represented on the wire as 0xFFFFFFFF.
		if sessionExpiry == -1 {
			c.connSettings.sessionExpiry = time.Duration(maxSessionExpiry) * time.Second
			return
		}
		c.connSettings.sessionExpiry = sessionExpiry
	}
}

// WithReceiveMaximum sets the receive maximum for the connection settings.
func WithReceiveMaximum(receiveMaximum uint16) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.receiveMaximum = receiveMaximum
	}
}

// WithConnectionTimeout sets the connectionTimeout for the connection
// settings. If connectionTimeout is 0, connection attempts will have no
// timeout. This works together with the configured connRetry.
func WithConnectionTimeout(connectionTimeout time.Duration) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.connectionTimeout = connectionTimeout
	}
}

// WithConnectPropertiesUser sets the user properties for the CONNECT packet.
func WithConnectPropertiesUser(user map[string]string) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.userProperties = user
	}
}

// ******LWT******

// ensureWillMessage ensures the existence of the WillMessage for the
// connection settings.
func ensureWillMessage(c *SessionClient) *WillMessage {
	if c.connSettings.willMessage == nil {
		c.connSettings.willMessage = &WillMessage{}
	}
	return c.connSettings.willMessage
}

// WithWillMessageRetain sets the Retain for the WillMessage.
func WithWillMessageRetain(retain bool) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillMessage(c).Retain = retain
	}
}

// WithWillMessageQoS sets the QoS for the WillMessage.
func WithWillMessageQoS(qos byte) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillMessage(c).QoS = qos
	}
}

// WithWillMessageTopic sets the Topic for the WillMessage.
func WithWillMessageTopic(topic string) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillMessage(c).Topic = topic
	}
}

// WithWillMessagePayload sets the Payload for the WillMessage.
func WithWillMessagePayload(payload []byte) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillMessage(c).Payload = payload
	}
}

// ensureWillProperties ensures the existence of the WillProperties for the
// connection settings.
func ensureWillProperties(c *SessionClient) *WillProperties {
	if c.connSettings.willProperties == nil {
		c.connSettings.willProperties = &WillProperties{}
	}
	return c.connSettings.willProperties
}

// WithWillPropertiesPayloadFormat sets the PayloadFormat for the
// WillProperties.
func WithWillPropertiesPayloadFormat(payloadFormat byte) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillProperties(c).PayloadFormat = payloadFormat
	}
}

// WithWillPropertiesWillDelayInterval sets the WillDelayInterval for the
// WillProperties.
func WithWillPropertiesWillDelayInterval(willDelayInterval time.Duration) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillProperties(c).WillDelayInterval = willDelayInterval
	}
}

// WithWillPropertiesMessageExpiry sets the MessageExpiry for the
// WillProperties.
func WithWillPropertiesMessageExpiry(messageExpiry time.Duration) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillProperties(c).MessageExpiry = messageExpiry
	}
}

// WithWillPropertiesContentType sets the ContentType for the WillProperties.
func WithWillPropertiesContentType(contentType string) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillProperties(c).ContentType = contentType
	}
}

// WithWillPropertiesResponseTopic sets the ResponseTopic for the
// WillProperties.
func WithWillPropertiesResponseTopic(responseTopic string) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillProperties(c).ResponseTopic = responseTopic
	}
}

// WithWillPropertiesCorrelationData sets the CorrelationData for the
// WillProperties.
func WithWillPropertiesCorrelationData(correlationData []byte) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillProperties(c).CorrelationData = correlationData
	}
}

// WithWillPropertiesUser sets the User properties for the WillProperties.
func WithWillPropertiesUser(user map[string]string) SessionClientOption {
	return func(c *SessionClient) {
		ensureWillProperties(c).User = user
	}
}

// ******TLS******

// WithUseTLS enables or disables the use of TLS for the connection settings.
func WithUseTLS(useTLS bool) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.useTLS = useTLS
	}
}

// WithTLSConfig sets the TLS configuration for the connection settings.
// Note that this only has an effect if the server URL scheme is "mqtts",
// "tls", "ssl", or "wss".
func WithTLSConfig(tlsConfig *tls.Config) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.tlsConfig = tlsConfig
	}
}

// WithCertFile sets the certFile for the connection settings.
func WithCertFile(certFile string) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.certFile = certFile
	}
}

// WithKeyFile sets the keyFile for the connection settings.
func WithKeyFile(keyFile string) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.keyFile = keyFile
	}
}

// WithKeyFilePassword sets the keyFilePassword for the connection settings.
func WithKeyFilePassword(keyFilePassword string) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.keyFilePassword = keyFilePassword
	}
}

// WithCaFile sets the caFile for the connection settings.
func WithCaFile(caFile string) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.caFile = caFile
	}
}

// WithCaRequireRevocationCheck sets the caRequireRevocationCheck for the
// connection settings.
func WithCaRequireRevocationCheck(revocationCheck bool) SessionClientOption {
	return func(c *SessionClient) {
		c.connSettings.caRequireRevocationCheck = revocationCheck
	}
}

// ******TESTING******

// WithPahoConstructor replaces the default Paho constructor with a custom
// one for testing.
func WithPahoConstructor(pahoConstructor PahoConstructor) SessionClientOption {
	return func(c *SessionClient) {
		c.pahoConstructor = pahoConstructor
	}
}

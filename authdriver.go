// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"

	"github.com/eclipse/paho.golang/paho"
)

// authDriver adapts a SessionClient's EnhancedAuthenticationProvider to
// Paho's Auther interface, handling the "Continue Authentication" leg of an
// MQTT Enhanced Authentication exchange (whether that exchange was started
// by the initial CONNECT or by a live reauthentication).
type authDriver struct {
	client *SessionClient
}

func (c *SessionClient) newAuthDriver() *authDriver {
	return &authDriver{client: c}
}

// Authenticate is called by Paho when the server sends an AUTH packet with
// reason code 0x18 (Continue Authentication).
func (d *authDriver) Authenticate(auth *paho.Auth) *paho.Auth {
	ctx := context.Background()

	var authMethod string
	var authData []byte
	if auth.Properties != nil {
		authMethod = auth.Properties.AuthMethod
		authData = auth.Properties.AuthData
	}

	values, err := d.client.authProvider.ContinueAuthExchange(ctx, &AuthValues{
		AuthenticationMethod: authMethod,
		AuthenticationData:   authData,
	})
	if err != nil {
		d.client.log.Error(ctx, err)
		values = nil
	}

	if values.Empty() {
		// Paho's Auther interface gives us no way to abort the exchange
		// directly; sending back an AUTH packet with no method/data is
		// malformed enough that the broker terminates the connection,
		// which routes us back through OnServerDisconnect/OnClientError
		// and the normal reconnect path.
		return &paho.Auth{ReasonCode: authContinueAuthenticate}
	}

	return &paho.Auth{
		ReasonCode: authContinueAuthenticate,
		Properties: &paho.AuthProperties{
			AuthMethod: values.AuthenticationMethod,
			AuthData:   values.AuthenticationData,
		},
	}
}

// Authenticated is called by Paho once an enhanced authentication exchange
// (initial or re-auth) completes successfully.
func (d *authDriver) Authenticated() {
	d.client.authProvider.AuthSuccess()
}

// requestReauthentication runs one round of MQTT re-authentication
// (RFC: AUTH packet with reason code 0x19, Re-authenticate) against the
// current live connection. It is passed to
// EnhancedAuthenticationProvider.InitiateAuthExchange as the
// requestReauthentication callback, so the provider may call it at any
// point for the lifetime of the SessionClient. At most one reauthentication
// runs at a time; concurrent requests are dropped.
func (c *SessionClient) requestReauthentication() {
	if c.authProvider == nil || !c.conn.BeginReauth() {
		return
	}

	go func() {
		defer c.conn.EndReauth()

		ctx, cancel := c.shutdown.Follow(context.Background())
		defer cancel()

		for pahoClient := range c.conn.Client(ctx) {
			values, err := c.authProvider.InitiateAuthExchange(
				ctx, true, c.requestReauthentication,
			)
			if err != nil {
				c.log.Error(ctx, err)
				return
			}

			auth := &paho.Auth{
				ReasonCode: authReAuthenticate,
				Properties: &paho.AuthProperties{
					AuthMethod: values.AuthenticationMethod,
					AuthData:   values.AuthenticationData,
				},
			}
			c.log.Packet(ctx, "auth", auth)
			if _, err := pahoClient.Authenticate(ctx, auth); err != nil {
				c.log.Error(ctx, err)
			}
			return
		}
	}()
}

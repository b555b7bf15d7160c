// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/require"

	"github.com/go-mqtt/sessionclient/internal"
)

// stubAuthProvider is a minimal EnhancedAuthenticationProvider for testing
// authDriver in isolation from a real MQTT connection.
type stubAuthProvider struct {
	continueValues  *AuthValues
	continueErr     error
	authSuccessHits int
	lastContinue    *AuthValues
}

func (s *stubAuthProvider) InitiateAuthExchange(
	context.Context, bool, func(),
) (*AuthValues, error) {
	return &AuthValues{AuthenticationMethod: "TEST", AuthenticationData: []byte("init")}, nil
}

func (s *stubAuthProvider) ContinueAuthExchange(
	_ context.Context, values *AuthValues,
) (*AuthValues, error) {
	s.lastContinue = values
	if s.continueErr != nil {
		return nil, s.continueErr
	}
	return s.continueValues, nil
}

func (s *stubAuthProvider) AuthSuccess() {
	s.authSuccessHits++
}

func TestAuthDriverAuthenticateContinuesExchange(t *testing.T) {
	provider := &stubAuthProvider{
		continueValues: &AuthValues{
			AuthenticationMethod: "TEST",
			AuthenticationData:   []byte("round-2"),
		},
	}
	client := &SessionClient{authProvider: provider}
	driver := client.newAuthDriver()

	resp := driver.Authenticate(&paho.Auth{
		ReasonCode: authContinueAuthenticate,
		Properties: &paho.AuthProperties{
			AuthMethod: "TEST",
			AuthData:   []byte("round-1"),
		},
	})

	require.Equal(t, authContinueAuthenticate, resp.ReasonCode)
	require.Equal(t, "TEST", resp.Properties.AuthMethod)
	require.Equal(t, []byte("round-2"), resp.Properties.AuthData)

	require.Equal(t, "TEST", provider.lastContinue.AuthenticationMethod)
	require.Equal(t, []byte("round-1"), provider.lastContinue.AuthenticationData)
}

func TestAuthDriverAuthenticateOnProviderErrorSendsEmptyContinuation(t *testing.T) {
	provider := &stubAuthProvider{continueErr: errors.New("rejected")}
	client := &SessionClient{authProvider: provider}
	driver := client.newAuthDriver()

	resp := driver.Authenticate(&paho.Auth{
		ReasonCode: authContinueAuthenticate,
		Properties: &paho.AuthProperties{AuthMethod: "TEST"},
	})

	require.Equal(t, authContinueAuthenticate, resp.ReasonCode)
	require.Nil(t, resp.Properties)
}

func TestAuthDriverAuthenticatedNotifiesProvider(t *testing.T) {
	provider := &stubAuthProvider{}
	client := &SessionClient{authProvider: provider}
	driver := client.newAuthDriver()

	driver.Authenticated()

	require.Equal(t, 1, provider.authSuccessHits)
}

// stubPahoAuthClient implements only Authenticate meaningfully; the rest of
// PahoClient is unused by requestReauthentication.
type stubPahoAuthClient struct {
	PahoClient
	authCalls []*paho.Auth
}

func (s *stubPahoAuthClient) Authenticate(
	_ context.Context, a *paho.Auth,
) (*paho.AuthResponse, error) {
	s.authCalls = append(s.authCalls, a)
	return &paho.AuthResponse{Success: true}, nil
}

func TestRequestReauthenticationSendsReAuthenticatePacket(t *testing.T) {
	provider := &stubAuthProvider{}
	client := &SessionClient{authProvider: provider}
	client.conn = internal.NewConnectionTracker[PahoClient]()
	_, client.shutdown = internal.NewBackground(&ClientStateError{State: ShutDown})

	stub := &stubPahoAuthClient{}
	require.NoError(t, client.conn.Connect(stub))

	client.requestReauthentication()

	require.Eventually(t, func() bool {
		return len(stub.authCalls) == 1
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, authReAuthenticate, stub.authCalls[0].ReasonCode)
	require.Equal(t, "TEST", stub.authCalls[0].Properties.AuthMethod)
}

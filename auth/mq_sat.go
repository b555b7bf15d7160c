// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package auth provides EnhancedAuthenticationProvider implementations for
// use with the mqtt session client.
package auth

import (
	"context"
	"fmt"
	"os"

	"github.com/go-mqtt/sessionclient"
)

// MQServiceAccountToken implements an EnhancedAuthenticationProvider that
// reads a Kubernetes Service Account token from the given filename and
// presents it as MQTT Enhanced Authentication values.
type MQServiceAccountToken struct {
	filename string
}

func NewMQServiceAccountToken(filename string) *MQServiceAccountToken {
	return &MQServiceAccountToken{filename: filename}
}

func (sat *MQServiceAccountToken) InitiateAuthExchange(
	_ context.Context,
	_ bool,
	_ func(),
) (*mqtt.AuthValues, error) {
	token, err := os.ReadFile(sat.filename)
	if err != nil {
		return nil, err
	}
	return &mqtt.AuthValues{
		AuthenticationMethod: "K8S-SAT",
		AuthenticationData:   token,
	}, nil
}

func (sat *MQServiceAccountToken) ContinueAuthExchange(
	_ context.Context,
	_ *mqtt.AuthValues,
) (*mqtt.AuthValues, error) {
	return nil, fmt.Errorf(
		"ContinueAuthExchange called on MQServiceAccountToken, but multiple rounds of exchange were not expected",
	)
}

func (sat *MQServiceAccountToken) AuthSuccess() {
	// TODO: start a file watcher to proactively re-authenticate before the
	// token expires; not required for the session client to function, but it
	// avoids a reconnect storm when the token eventually is rejected.
}

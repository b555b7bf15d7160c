// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"

	"github.com/eclipse/paho.golang/paho"
)

// PahoClient is the narrow slice of *paho.Client's surface that the session
// client depends on. It exists so that unit tests can substitute a stub
// client (see PahoConstructor/WithPahoConstructor) without a real network
// connection or broker.
type PahoClient interface {
	Connect(ctx context.Context, cp *paho.Connect) (*paho.Connack, error)
	Disconnect(d *paho.Disconnect) error
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
	Unsubscribe(ctx context.Context, u *paho.Unsubscribe) (*paho.Unsuback, error)
	PublishWithOptions(
		ctx context.Context,
		p *paho.Publish,
		opts paho.PublishOptions,
	) (*paho.PublishResponse, error)
	Authenticate(ctx context.Context, a *paho.Auth) (*paho.AuthResponse, error)
	Ack(p *paho.Publish) error
}

// PahoConstructor builds a PahoClient over an already-established network
// connection and paho.ClientConfig. It is primarily a test seam
// (WithPahoConstructor); production code should use the default
// constructor, which is used automatically if none is provided.
type PahoConstructor func(
	ctx context.Context,
	cfg *paho.ClientConfig,
) (PahoClient, error)

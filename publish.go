// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"errors"

	"github.com/go-mqtt/sessionclient/internal"
	"github.com/eclipse/paho.golang/paho"
)

type publishResult struct {
	// TODO: add PUBACK information once Paho exposes it
	// (see: https://github.com/eclipse/paho.golang/issues/216)
	err error
}

type outgoingPublish struct {
	packet     *paho.Publish
	resultChan chan *publishResult
}

// Background goroutine that sends queued publishes while the connection is
// up. Blocks until ctx is cancelled.
func (c *SessionClient) manageOutgoingPublishes(ctx context.Context) {
	var pending *outgoingPublish

	for pahoClient, down := range c.conn.Client(ctx) {
		sent := c.drainOutgoingPublishes(ctx, pahoClient, down, &pending)
		if !sent {
			return
		}
	}
}

// drainOutgoingPublishes sends queued publishes over pahoClient until the
// connection goes down (returns true, so the caller reconnects and resumes)
// or ctx is cancelled (returns false, so the caller exits).
func (c *SessionClient) drainOutgoingPublishes(
	ctx context.Context,
	pahoClient PahoClient,
	down <-chan struct{},
	pending **outgoingPublish,
) bool {
	for {
		if *pending == nil {
			select {
			case <-ctx.Done():
				return false
			case <-down:
				return true
			case next := <-c.outgoingPublishes:
				*pending = next
			}
		}

		// NOTE: we cannot get back the PUBACK on this due to a limitation in
		// Paho (see https://github.com/eclipse/paho.golang/issues/216).
		_, err := pahoClient.PublishWithOptions(
			ctx,
			(*pending).packet,
			paho.PublishOptions{Method: paho.PublishMethod_AsyncSend},
		)

		var result *publishResult
		switch {
		case err == nil || errors.Is(err, paho.ErrNetworkErrorAfterStored):
			// Paho has accepted control of the PUBLISH (either sent, or
			// stored in Paho's session tracker), so we relinquish control.
			result = &publishResult{}

		case errors.Is(err, paho.ErrInvalidArguments):
			// There is no hope of this PUBLISH succeeding; give up and
			// notify the caller.
			result = &publishResult{
				err: &InvalidArgumentError{
					wrappedError: err,
					message:      "invalid arguments in Publish() options",
				},
			}

		default:
			// Any other error (e.g., the connection dropped mid-send) means
			// we retry this same PUBLISH on the next connection.
			select {
			case <-ctx.Done():
				return false
			case <-down:
				return true
			}
		}

		// should never block because resultChan is buffered by 1
		(*pending).resultChan <- result
		*pending = nil
	}
}

// Publish sends a PUBLISH packet for topic. The returned Ack is always nil
// for now, since Paho does not yet expose PUBACK information to callers
// (https://github.com/eclipse/paho.golang/issues/216); it is reserved so
// that filling in that information later does not change this signature.
func (c *SessionClient) Publish(
	ctx context.Context,
	topic string,
	payload []byte,
	opts ...PublishOption,
) (*Ack, error) {
	if !c.sessionStarted.Load() {
		return nil, &ClientStateError{State: NotStarted}
	}

	var opt PublishOptions
	opt.Apply(opts)

	// Validate options.
	if opt.QoS >= 2 {
		return nil, &InvalidArgumentError{
			message: "Invalid QoS. Supported QoS value are 0 and 1",
		}
	}
	if opt.PayloadFormat >= 2 {
		return nil, &InvalidArgumentError{
			message: "Invalid payload format indicator. Supported values are 0 and 1",
		}
	}

	// Build MQTT publish packet.
	pub := &paho.Publish{
		QoS:     opt.QoS,
		Retain:  opt.Retain,
		Topic:   topic,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType:     opt.ContentType,
			CorrelationData: opt.CorrelationData,
			PayloadFormat:   &opt.PayloadFormat,
			ResponseTopic:   opt.ResponseTopic,
			User:            internal.MapToUserProperties(opt.UserProperties),
		},
	}

	if opt.MessageExpiry > 0 {
		pub.Properties.MessageExpiry = &opt.MessageExpiry
	}

	// Buffered in case the ctx is cancelled before we are able to read the
	// result
	resultChan := make(chan *publishResult, 1)
	queuedPublish := &outgoingPublish{
		packet:     pub,
		resultChan: resultChan,
	}
	c.log.Packet(ctx, "publish", pub)
	select {
	case c.outgoingPublishes <- queuedPublish:
	default:
		return nil, &PublishQueueFullError{}
	}

	var result *publishResult
	select {
	case result = <-resultChan:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.shutdown.Done():
		return nil, &ClientStateError{State: ShutDown}
	}

	return nil, result.err
}

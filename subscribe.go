// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"errors"
	"sync"

	"github.com/go-mqtt/sessionclient/internal"
	"github.com/eclipse/paho.golang/paho"
)

type incomingPublish struct {
	// The incoming PUBLISH packet
	packet *paho.Publish
	// Manually acks this PUBLISH. A handler that claims the message must call
	// this; unclaimed messages are acked by onPublishReceived.
	ack func() error
}

// idempotentAck builds the one-shot, generation-scoped ack closure for a
// single incoming PUBLISH. Calling the returned func more than once is a
// no-op; calling it after a reconnect has superseded arrivalGeneration is
// also a no-op, since the broker that issued the PUBLISH is no longer the
// one we're connected to.
func (c *SessionClient) idempotentAck(
	packet *paho.Publish,
	arrivalGeneration uint64,
) func() error {
	return sync.OnceValue(func() error {
		if packet.QoS == 0 {
			return &InvalidOperationError{
				message: "only QoS 1 messages may be acked",
			}
		}

		current := c.conn.Current()
		if current.Client == nil || current.Count != arrivalGeneration {
			return nil
		}

		return current.Client.Ack(packet)
	})
}

// notifyHandlers fans incoming out to every registered message handler and
// reports whether any of them claimed ownership of the ack.
//
// TODO: a handler that claims ownership but never acks will leak the
// message; multiple claiming handlers silently race on whichever acks
// first rather than the last.
func (c *SessionClient) notifyHandlers(incoming incomingPublish) (claimed bool) {
	for handler := range c.incomingPublishHandlers.All() {
		if handler(incoming) {
			claimed = true
		}
	}
	return claimed
}

// onPublishReceived builds the callback registered with the underlying
// protocol engine for incoming PUBLISH packets on one connection generation.
// Unclaimed messages are acked automatically so a client with no handlers
// registered still drains its receive window.
func (c *SessionClient) onPublishReceived(
	ctx context.Context,
	generation uint64,
) func(paho.PublishReceived) (bool, error) {
	return func(received paho.PublishReceived) (bool, error) {
		c.log.Packet(ctx, "publish received", received.Packet)

		incoming := incomingPublish{
			packet: received.Packet,
			ack:    c.idempotentAck(received.Packet, generation),
		}

		if !c.notifyHandlers(incoming) {
			return true, incoming.ack()
		}
		return true, nil
	}
}

// RegisterMessageHandler registers a message handler on this client. Returns a
// callback to remove the message handler.
func (c *SessionClient) RegisterMessageHandler(handler MessageHandler) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := c.incomingPublishHandlers.AppendEntry(
		func(incoming incomingPublish) bool {
			return handler(ctx, buildMessage(incoming))
		},
	)
	return sync.OnceFunc(func() {
		done()
		cancel()
	})
}

// subOrUnsubAck is satisfied by the two acknowledgment packet types the
// control-packet path can receive back from the protocol engine.
type subOrUnsubAck interface {
	*paho.Suback | *paho.Unsuback
}

// sendControlPacket waits for a live connection, sends packet, and retries
// across reconnects until an ack arrives, ctx is cancelled, or the client
// shuts down. Subscribe and Unsubscribe differ only in packet/ack types and
// how an ack's fields map to Ack, so both funnel through here.
func sendControlPacket[Packet, Acked subOrUnsubAck](
	ctx context.Context,
	c *SessionClient,
	logName string,
	packet Packet,
	send func(context.Context, PahoClient, Packet) (Acked, error),
	toAck func(Acked) *Ack,
	invalidArgsMessage string,
) (*Ack, error) {
	ctx, cancel := c.shutdown.Follow(ctx)
	defer cancel()

	for pahoClient := range c.conn.Client(ctx) {
		c.log.Packet(ctx, logName, packet)
		acked, err := send(ctx, pahoClient, packet)
		c.log.Packet(ctx, logName+"ack", acked)

		if errors.Is(err, paho.ErrInvalidArguments) {
			return nil, &InvalidArgumentError{
				wrappedError: err,
				message:      invalidArgsMessage,
			}
		}

		var zero Acked
		if acked != zero {
			return toAck(acked), nil
		}
	}

	return nil, context.Cause(ctx)
}

func (c *SessionClient) Subscribe(
	ctx context.Context,
	topic string,
	opts ...SubscribeOption,
) (*Ack, error) {
	if !c.sessionStarted.Load() {
		return nil, &ClientStateError{NotStarted}
	}
	sub, err := buildSubscribe(topic, opts...)
	if err != nil {
		return nil, err
	}

	return sendControlPacket(ctx, c, "subscribe", sub,
		func(ctx context.Context, client PahoClient, sub *paho.Subscribe) (*paho.Suback, error) {
			return client.Subscribe(ctx, sub)
		},
		func(suback *paho.Suback) *Ack {
			return &Ack{
				ReasonCode:   suback.Reasons[0],
				ReasonString: suback.Properties.ReasonString,
				UserProperties: internal.UserPropertiesToMap(
					suback.Properties.User,
				),
			}
		},
		"invalid arguments in Subscribe() options",
	)
}

func (c *SessionClient) Unsubscribe(
	ctx context.Context,
	topic string,
	opts ...UnsubscribeOption,
) (*Ack, error) {
	unsub, err := buildUnsubscribe(topic, opts...)
	if err != nil {
		return nil, err
	}

	return sendControlPacket(ctx, c, "unsubscribe", unsub,
		func(ctx context.Context, client PahoClient, unsub *paho.Unsubscribe) (*paho.Unsuback, error) {
			return client.Unsubscribe(ctx, unsub)
		},
		func(unsuback *paho.Unsuback) *Ack {
			return &Ack{
				ReasonCode:   unsuback.Reasons[0],
				ReasonString: unsuback.Properties.ReasonString,
				UserProperties: internal.UserPropertiesToMap(
					unsuback.Properties.User,
				),
			}
		},
		"invalid arguments in Unsubscribe() options",
	)
}

func buildSubscribe(
	topic string,
	opts ...SubscribeOption,
) (*paho.Subscribe, error) {
	var opt SubscribeOptions
	opt.Apply(opts)

	// Validate options.
	if opt.QoS >= 2 {
		return nil, &InvalidArgumentError{
			message: "Invalid QoS. Supported QoS value are 0 and 1",
		}
	}

	// Build MQTT subscribe packet.
	sub := &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic:             topic,
			QoS:               opt.QoS,
			NoLocal:           opt.NoLocal,
			RetainAsPublished: opt.Retain,
			RetainHandling:    opt.RetainHandling,
		}},
	}
	if len(opt.UserProperties) > 0 {
		sub.Properties = &paho.SubscribeProperties{
			User: internal.MapToUserProperties(opt.UserProperties),
		}
	}
	return sub, nil
}

func buildUnsubscribe(
	topic string,
	opts ...UnsubscribeOption,
) (*paho.Unsubscribe, error) {
	var opt UnsubscribeOptions
	opt.Apply(opts)

	unsub := &paho.Unsubscribe{
		Topics: []string{topic},
	}
	if len(opt.UserProperties) > 0 {
		unsub.Properties = &paho.UnsubscribeProperties{
			User: internal.MapToUserProperties(opt.UserProperties),
		}
	}

	return unsub, nil
}

// buildMessage build message for message handler.
func buildMessage(p incomingPublish) *Message {
	msg := &Message{
		Topic:   p.packet.Topic,
		Payload: p.packet.Payload,
		PublishOptions: PublishOptions{
			ContentType:     p.packet.Properties.ContentType,
			CorrelationData: p.packet.Properties.CorrelationData,
			QoS:             p.packet.QoS,
			ResponseTopic:   p.packet.Properties.ResponseTopic,
			Retain:          p.packet.Retain,
			UserProperties: internal.UserPropertiesToMap(
				p.packet.Properties.User,
			),
		},
		Ack: p.ack,
	}
	if p.packet.Properties.MessageExpiry != nil {
		msg.MessageExpiry = *p.packet.Properties.MessageExpiry
	}
	if p.packet.Properties.PayloadFormat != nil {
		msg.PayloadFormat = *p.packet.Properties.PayloadFormat
	}
	return msg
}

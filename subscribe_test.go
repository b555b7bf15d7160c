// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"testing"

	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/require"

	"github.com/go-mqtt/sessionclient/internal"
)

// stubAckClient implements only Ack meaningfully; the rest of PahoClient is
// unused by idempotentAck.
type stubAckClient struct {
	PahoClient
	ackCalls []*paho.Publish
	ackErr   error
}

func (s *stubAckClient) Ack(p *paho.Publish) error {
	s.ackCalls = append(s.ackCalls, p)
	return s.ackErr
}

func newTestClient(t *testing.T) *SessionClient {
	t.Helper()
	c := &SessionClient{}
	c.initialize()
	return c
}

func TestIdempotentAckCallsUnderlyingAckOnce(t *testing.T) {
	c := newTestClient(t)
	stub := &stubAckClient{}
	require.NoError(t, c.conn.Connect(stub))

	packet := &paho.Publish{QoS: 1}
	ack := c.idempotentAck(packet, c.conn.Current().Count)

	require.NoError(t, ack())
	require.NoError(t, ack())
	require.Len(t, stub.ackCalls, 1)
}

func TestIdempotentAckRejectsQoS0(t *testing.T) {
	c := newTestClient(t)
	stub := &stubAckClient{}
	require.NoError(t, c.conn.Connect(stub))

	ack := c.idempotentAck(&paho.Publish{QoS: 0}, c.conn.Current().Count)

	err := ack()
	require.Error(t, err)
	var invalidOp *InvalidOperationError
	require.ErrorAs(t, err, &invalidOp)
	require.Empty(t, stub.ackCalls)
}

func TestIdempotentAckIsNoOpAfterGenerationSuperseded(t *testing.T) {
	c := newTestClient(t)
	stub := &stubAckClient{}
	require.NoError(t, c.conn.Connect(stub))

	staleGeneration := c.conn.Current().Count
	ack := c.idempotentAck(&paho.Publish{QoS: 1}, staleGeneration)

	c.conn.Disconnect(staleGeneration, nil)
	stub2 := &stubAckClient{}
	require.NoError(t, c.conn.Connect(stub2))

	require.NoError(t, ack())
	require.Empty(t, stub.ackCalls)
	require.Empty(t, stub2.ackCalls)
}

func TestNotifyHandlersReportsUnclaimedWhenNoHandlerTakesOwnership(t *testing.T) {
	c := newTestClient(t)

	done := c.incomingPublishHandlers.AppendEntry(func(incomingPublish) bool {
		return false
	})
	defer done()

	claimed := c.notifyHandlers(incomingPublish{packet: &paho.Publish{}})
	require.False(t, claimed)
}

func TestNotifyHandlersReportsClaimedIfAnyHandlerTakesOwnership(t *testing.T) {
	c := newTestClient(t)

	done1 := c.incomingPublishHandlers.AppendEntry(func(incomingPublish) bool {
		return false
	})
	defer done1()
	done2 := c.incomingPublishHandlers.AppendEntry(func(incomingPublish) bool {
		return true
	})
	defer done2()

	claimed := c.notifyHandlers(incomingPublish{packet: &paho.Publish{}})
	require.True(t, claimed)
}

func TestOnPublishReceivedAcksUnclaimedMessages(t *testing.T) {
	c := newTestClient(t)
	stub := &stubAckClient{}
	require.NoError(t, c.conn.Connect(stub))

	onPublish := c.onPublishReceived(context.Background(), c.conn.Current().Count)
	_, err := onPublish(paho.PublishReceived{Packet: &paho.Publish{QoS: 1}})

	require.NoError(t, err)
	require.Len(t, stub.ackCalls, 1)
}

func TestOnPublishReceivedLeavesClaimedMessagesUnacked(t *testing.T) {
	c := newTestClient(t)
	stub := &stubAckClient{}
	require.NoError(t, c.conn.Connect(stub))

	done := c.incomingPublishHandlers.AppendEntry(func(incomingPublish) bool {
		return true
	})
	defer done()

	onPublish := c.onPublishReceived(context.Background(), c.conn.Current().Count)
	_, err := onPublish(paho.PublishReceived{Packet: &paho.Publish{QoS: 1}})

	require.NoError(t, err)
	require.Empty(t, stub.ackCalls)
}

// stubSubUnsubClient returns a queued response on each Subscribe/Unsubscribe
// call, letting tests exercise sendControlPacket's retry-across-reconnect
// loop without a real broker.
type stubSubUnsubClient struct {
	PahoClient
	subResponses []*paho.Suback
}

func (s *stubSubUnsubClient) Subscribe(
	_ context.Context, _ *paho.Subscribe,
) (*paho.Suback, error) {
	resp := s.subResponses[0]
	s.subResponses = s.subResponses[1:]
	return resp, nil
}

func TestSendControlPacketReturnsAckOnFirstSuccess(t *testing.T) {
	c := newTestClient(t)
	_, c.shutdown = internal.NewBackground(&ClientStateError{State: ShutDown})
	stub := &stubSubUnsubClient{
		subResponses: []*paho.Suback{{
			Reasons:    []byte{0},
			Properties: &paho.SubackProperties{},
		}},
	}
	require.NoError(t, c.conn.Connect(stub))

	sub := &paho.Subscribe{}
	ack, err := sendControlPacket(context.Background(), c, "subscribe", sub,
		func(ctx context.Context, client PahoClient, s *paho.Subscribe) (*paho.Suback, error) {
			return client.Subscribe(ctx, s)
		},
		func(suback *paho.Suback) *Ack {
			return &Ack{ReasonCode: suback.Reasons[0]}
		},
		"invalid arguments in Subscribe() options",
	)

	require.NoError(t, err)
	require.Equal(t, byte(0), ack.ReasonCode)
}

func TestSendControlPacketReturnsContextCauseWhenCallerCancels(t *testing.T) {
	c := newTestClient(t)
	_, c.shutdown = internal.NewBackground(&ClientStateError{State: ShutDown})

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(context.Canceled)

	sub := &paho.Subscribe{}
	_, err := sendControlPacket(ctx, c, "subscribe", sub,
		func(ctx context.Context, client PahoClient, s *paho.Subscribe) (*paho.Suback, error) {
			return client.Subscribe(ctx, s)
		},
		func(suback *paho.Suback) *Ack {
			return &Ack{ReasonCode: suback.Reasons[0]}
		},
		"invalid arguments in Subscribe() options",
	)

	require.ErrorIs(t, err, context.Canceled)
}

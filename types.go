// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"time"
)

type (
	// ConnectEvent is passed to a ConnectEventHandler whenever the session
	// client establishes an MQTT connection.
	ConnectEvent struct {
		// ReasonCode is the reason code from the CONNACK packet that
		// established this connection.
		ReasonCode byte
	}

	// ConnectEventHandler is called synchronously, in registration order,
	// whenever the session client establishes an MQTT connection. Handlers
	// should not block for an extended period of time.
	ConnectEventHandler func(*ConnectEvent)

	// DisconnectEvent is passed to a DisconnectEventHandler whenever the
	// session client detects a disconnection from the MQTT server.
	DisconnectEvent struct {
		// ReasonCode is set if the disconnection was due to a DISCONNECT
		// packet received from the server.
		ReasonCode *byte
		// Error is set if the disconnection was due to a network or
		// protocol error rather than an explicit DISCONNECT packet.
		Error error
	}

	// DisconnectEventHandler is called synchronously, in registration
	// order, whenever the session client detects a disconnection from the
	// MQTT server. Handlers should not block for an extended period of
	// time.
	DisconnectEventHandler func(*DisconnectEvent)

	// Ack contains the result of a SUBSCRIBE or UNSUBSCRIBE operation.
	Ack struct {
		ReasonCode     byte
		ReasonString   string
		UserProperties map[string]string
	}

	// Message represents an incoming PUBLISH delivered to a MessageHandler.
	Message struct {
		Topic   string
		Payload []byte
		PublishOptions

		// Ack manually acknowledges this message. A MessageHandler that
		// returns true must call Ack for a QoS 1 message; if no handler
		// returns true, the session client acks the message itself. Calls
		// after the first are no-ops. Calling Ack on a QoS 0 message returns
		// InvalidOperationError.
		Ack func() error
	}

	// MessageHandler handles an incoming PUBLISH. Returning true indicates
	// that this handler has taken ownership of acknowledging the message
	// (via Message.Ack); if no registered handler returns true, the session
	// client acknowledges the message automatically.
	MessageHandler func(ctx context.Context, msg *Message) bool

	// WillMessage describes the MQTT Last Will and Testament message to be
	// published by the server if the session client disconnects
	// ungracefully.
	WillMessage struct {
		Retain  bool
		QoS     byte
		Topic   string
		Payload []byte
	}

	// WillProperties describes the MQTT v5 properties of the Last Will and
	// Testament message.
	WillProperties struct {
		WillDelayInterval time.Duration
		PayloadFormat     byte
		MessageExpiry     time.Duration
		ContentType       string
		ResponseTopic     string
		CorrelationData   []byte
		User              map[string]string
	}

	// PublishOptions holds the resolved configuration for a single Publish
	// call.
	PublishOptions struct {
		ContentType     string
		CorrelationData []byte
		MessageExpiry   uint32
		PayloadFormat   byte
		QoS             byte
		Retain          bool
		ResponseTopic   string
		UserProperties  map[string]string
	}

	// SubscribeOptions holds the resolved configuration for a single
	// Subscribe call.
	SubscribeOptions struct {
		QoS            byte
		NoLocal        bool
		Retain         bool
		RetainHandling byte
		UserProperties map[string]string
	}

	// UnsubscribeOptions holds the resolved configuration for a single
	// Unsubscribe call.
	UnsubscribeOptions struct {
		UserProperties map[string]string
	}

	// PublishOption configures a single Publish call.
	PublishOption interface{ publishOption(*PublishOptions) }

	// SubscribeOption configures a single Subscribe call.
	SubscribeOption interface{ subscribeOption(*SubscribeOptions) }

	// UnsubscribeOption configures a single Unsubscribe call.
	UnsubscribeOption interface{ unsubscribeOption(*UnsubscribeOptions) }
)

// Apply applies opts to o in order.
func (o *PublishOptions) Apply(opts []PublishOption) {
	for _, opt := range opts {
		opt.publishOption(o)
	}
}

// Apply applies opts to o in order.
func (o *SubscribeOptions) Apply(opts []SubscribeOption) {
	for _, opt := range opts {
		opt.subscribeOption(o)
	}
}

// Apply applies opts to o in order.
func (o *UnsubscribeOptions) Apply(opts []UnsubscribeOption) {
	for _, opt := range opts {
		opt.unsubscribeOption(o)
	}
}

// WithUserProperties attaches MQTT User Properties to a PUBLISH, SUBSCRIBE,
// or UNSUBSCRIBE packet.
type WithUserProperties map[string]string

func (w WithUserProperties) publishOption(o *PublishOptions) {
	o.UserProperties = w
}

func (w WithUserProperties) subscribeOption(o *SubscribeOptions) {
	o.UserProperties = w
}

func (w WithUserProperties) unsubscribeOption(o *UnsubscribeOptions) {
	o.UserProperties = w
}

// WithQoS sets the QoS of a PUBLISH or SUBSCRIBE. Only QoS 0 and QoS 1 are
// supported.
type WithQoS byte

func (w WithQoS) publishOption(o *PublishOptions)     { o.QoS = byte(w) }
func (w WithQoS) subscribeOption(o *SubscribeOptions) { o.QoS = byte(w) }

// WithRetain sets the RETAIN flag on a PUBLISH, or the Retain As Published
// option on a SUBSCRIBE.
type WithRetain bool

func (w WithRetain) publishOption(o *PublishOptions)     { o.Retain = bool(w) }
func (w WithRetain) subscribeOption(o *SubscribeOptions) { o.Retain = bool(w) }

// WithContentType sets the Content Type property of a PUBLISH.
type WithContentType string

func (w WithContentType) publishOption(o *PublishOptions) {
	o.ContentType = string(w)
}

// WithResponseTopic sets the Response Topic property of a PUBLISH.
type WithResponseTopic string

func (w WithResponseTopic) publishOption(o *PublishOptions) {
	o.ResponseTopic = string(w)
}

// WithCorrelationData sets the Correlation Data property of a PUBLISH.
type WithCorrelationData []byte

func (w WithCorrelationData) publishOption(o *PublishOptions) {
	o.CorrelationData = []byte(w)
}

// WithMessageExpiry sets the Message Expiry Interval property of a PUBLISH.
// Fractional seconds are truncated, since the wire format only carries
// whole seconds.
type WithMessageExpiry time.Duration

func (w WithMessageExpiry) publishOption(o *PublishOptions) {
	o.MessageExpiry = uint32(time.Duration(w).Seconds())
}

// WithPayloadFormat sets the Payload Format Indicator property of a
// PUBLISH. 0 indicates unspecified bytes, 1 indicates UTF-8 encoded
// character data.
type WithPayloadFormat byte

func (w WithPayloadFormat) publishOption(o *PublishOptions) {
	o.PayloadFormat = byte(w)
}

// WithNoLocal, if true, prevents messages published by this client from
// being forwarded back to it by a matching SUBSCRIBE.
type WithNoLocal bool

func (w WithNoLocal) subscribeOption(o *SubscribeOptions) {
	o.NoLocal = bool(w)
}

// WithRetainHandling controls whether the server sends retained messages
// matching a new SUBSCRIBE.
type WithRetainHandling byte

func (w WithRetainHandling) subscribeOption(o *SubscribeOptions) {
	o.RetainHandling = byte(w)
}

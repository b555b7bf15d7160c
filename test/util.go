// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package test

import (
	"context"
	"sync"

	"github.com/go-mqtt/sessionclient"
)

const (
	clientID        string = "sandycheeks"
	topicName       string = "patrick"
	topicName2      string = "plankton"
	LWTTopicName    string = "krabs"
	LWTMessage      string = "karen"
	publishMessage  string = "squidward"
	publishMessage2 string = "squarepants"
)

// noopHandler is a MessageHandler that ignores the message and lets the
// session client ack it automatically.
func noopHandler(context.Context, *mqtt.Message) bool {
	return false
}

// ChannelCallback adapts a single-argument callback into a channel: Func is
// registered as the handler, and values sent to the handler are available to
// read from the channel itself.
type ChannelCallback[T any] chan T

// Func is the handler function to register with the session client. It
// blocks until the value is received, so tests must read from the channel.
func (c ChannelCallback[T]) Func(val T) {
	c <- val
}

// getNextConnectEvent returns a channel that gets a single connect event from
// client and cleans up the handler it registered on the client after receiving
// the event.
func getNextConnectEvent(client *mqtt.SessionClient) <-chan *mqtt.ConnectEvent {
	internalChan := make(chan *mqtt.ConnectEvent)
	var connectEventOnce sync.Once
	connectEventFunc := func(connectEvent *mqtt.ConnectEvent) {
		connectEventOnce.Do(func() {
			internalChan <- connectEvent
			close(internalChan)
		})
	}
	remove := client.RegisterConnectEventHandler(connectEventFunc)

	connectEventChan := make(chan *mqtt.ConnectEvent, 1)
	go func() {
		event := <-internalChan
		connectEventChan <- event
		close(connectEventChan)
		remove()
	}()

	return connectEventChan
}

// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

// fatalConnackReasonCodes are CONNACK reason codes that indicate the
// connection attempt can never succeed as configured; the session client
// gives up rather than retrying.
var fatalConnackReasonCodes = map[byte]bool{
	connackMalformedPacket:             true,
	connackProtocolError:               true,
	connackImplementationSpecificError: true,
	connackUnsupportedProtocolVersion:  true,
	connackClientIdentifierNotValid:    true,
	connackBadUserNameOrPassword:       true,
	connackNotAuthorized:               true,
	connackBanned:                      true,
	connackBadAuthenticationMethod:     true,
}

// fatalDisconnectReasonCodes are DISCONNECT reason codes sent by the server
// that indicate the session client should give up rather than reconnect.
var fatalDisconnectReasonCodes = map[byte]bool{
	disconnectNotAuthorized:                       true,
	disconnectProtocolError:                       true,
	disconnectMalformedPacket:                     true,
	disconnectBadAuthenticationMethod:             true,
	disconnectSessionTakenOver:                    true,
	disconnectTopicFilterInvalid:                  true,
	disconnectTopicNameInvalid:                    true,
	disconnectTopicAliasInvalid:                   true,
	disconnectPacketTooLarge:                      true,
	disconnectPayloadFormatInvalid:                true,
	disconnectRetainNotSupported:                  true,
	disconnectQoSNotSupported:                     true,
	disconnectSharedSubscriptionsNotSupported:     true,
	disconnectSubscriptionIdentifiersNotSupported: true,
	disconnectWildcardSubscriptionsNotSupported:   true,
}

func isFatalConnackReasonCode(code byte) bool {
	return fatalConnackReasonCodes[code]
}

func isFatalDisconnectReasonCode(code byte) bool {
	return fatalDisconnectReasonCodes[code]
}

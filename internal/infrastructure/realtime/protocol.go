// Package realtime maintains the client's authenticated push connection and
// its single private-channel subscription.
package realtime

import (
	"encoding/json"
	"fmt"
	"io"
)

// Protocol event names. The push backend speaks the Pusher wire protocol;
// channel events carry the application event name instead.
const (
	eventConnectionEstablished = "pusher:connection_established"
	eventSubscribe             = "pusher:subscribe"
	eventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	eventSubscriptionError     = "pusher:subscription_error"
	eventPing                  = "pusher:ping"
	eventPong                  = "pusher:pong"
	eventProtocolError         = "pusher:error"
)

// protocolVersion is the Pusher protocol revision this client speaks.
const protocolVersion = 7

// message is the envelope every frame on the connection uses.
type message struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// connectionEstablished is the greeting payload sent by the server.
type connectionEstablished struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

// subscribeData is the client's private-channel subscription request.
type subscribeData struct {
	Channel string `json:"channel"`
	Auth    string `json:"auth"`
}

// channelAuthResponse is the authorization endpoint's answer.
type channelAuthResponse struct {
	Auth string `json:"auth"`
}

// protocolError is the payload of a pusher:error frame.
type protocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// decodeData unmarshals a message payload into v. Server-originated payloads
// are JSON-encoded strings containing JSON; payloads sent as plain objects
// are accepted too.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload")
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("unwrapping payload: %w", err)
		}
		raw = json.RawMessage(inner)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// decodeDataStream decodes a plain JSON body, as returned by the channel
// authorization endpoint.
func decodeDataStream(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}

// encodeMessage marshals an envelope for sending.
func encodeMessage(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return json.Marshal(message{Event: event, Data: payload})
}

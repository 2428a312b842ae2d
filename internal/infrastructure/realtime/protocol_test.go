package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeData(t *testing.T) {
	t.Run("unwraps string-wrapped payloads", func(t *testing.T) {
		raw := json.RawMessage(`"{\"socket_id\":\"123.45\",\"activity_timeout\":120}"`)

		var established connectionEstablished
		require.NoError(t, decodeData(raw, &established))
		assert.Equal(t, "123.45", established.SocketID)
		assert.Equal(t, 120, established.ActivityTimeout)
	})

	t.Run("accepts plain objects", func(t *testing.T) {
		raw := json.RawMessage(`{"code":4001,"message":"over quota"}`)

		var perr protocolError
		require.NoError(t, decodeData(raw, &perr))
		assert.Equal(t, 4001, perr.Code)
		assert.Equal(t, "over quota", perr.Message)
	})

	t.Run("rejects empty payloads", func(t *testing.T) {
		var perr protocolError
		assert.Error(t, decodeData(nil, &perr))
	})

	t.Run("rejects malformed wrapping", func(t *testing.T) {
		var perr protocolError
		assert.Error(t, decodeData(json.RawMessage(`"not json"`), &perr))
	})
}

func TestEncodeMessage(t *testing.T) {
	frame, err := encodeMessage(eventSubscribe, subscribeData{Channel: "private-App.Models.User.u1", Auth: "key:sig"})
	require.NoError(t, err)

	var msg message
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, eventSubscribe, msg.Event)

	var data subscribeData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, "private-App.Models.User.u1", data.Channel)
	assert.Equal(t, "key:sig", data.Auth)
}

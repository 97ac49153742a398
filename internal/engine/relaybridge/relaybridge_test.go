package relaybridge

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elementary-rt/elementary/internal/engine"
)

func TestBridgeBroadcastsDrainedEvents(t *testing.T) {
	relay := engine.NewEventRelay(16, 1000)
	relay.Push("meter", map[string]any{"min": -1, "max": 1})

	bridge := NewBridge(relay, nil)
	server := httptest.NewServer(bridge)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go bridge.Run(5*time.Millisecond, stop, func() int64 { return 0 })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	decompressed, err := Decompress(msg)
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(decompressed, &f))
	require.Len(t, f.Events, 1)
	assert.Equal(t, "meter", f.Events[0].Topic)
}

func TestCompressDecompressRoundTrips(t *testing.T) {
	original := []byte(`{"hello":"world"}`)
	compressed, err := compress(original)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)

	decompressed, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

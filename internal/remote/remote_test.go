package remote

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elementary-rt/elementary/internal/instruction"
)

type fakeSink struct {
	received []instruction.Batch
}

func (s *fakeSink) Enqueue(b instruction.Batch) error {
	s.received = append(s.received, b)
	return nil
}

func TestSendBatchReachesSink(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	bridge, err := Listen(ctx, []string{"/ip4/127.0.0.1/tcp/0"}, sink, nil)
	require.NoError(t, err)
	defer bridge.Close()

	addrs := bridge.Addrs()
	require.NotEmpty(t, addrs, "expected at least one listen address")

	priv, _, err := crypto.GenerateEd25519Key(nil)
	require.NoError(t, err)
	client, err := libp2p.New(libp2p.Identity(priv))
	require.NoError(t, err)
	defer client.Close()

	bld := instruction.NewBuilder()
	bld.CreateNode(1, "const")
	bld.SetProperty(1, "value", 0.5)
	batch := bld.Commit()

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, SendBatch(dialCtx, client, addrs[0], batch))

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.received) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, sink.received, 1)
	assert.Len(t, sink.received[0].Instructions, len(batch.Instructions))
}

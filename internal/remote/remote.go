// Package remote is an optional libp2p control-plane bridge that lets a
// remote peer submit instruction batches into the local engine queue,
// grounded on internal/network/mesh.go's StartNodeWithStreams/SendPacket
// stream-per-request pattern.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	libp2phost "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/elementary-rt/elementary/internal/instruction"
)

const batchProtocol = "/elementary/batch/1.0.0"

// wireBatch is the JSON-over-stream shape of a remote-submitted batch.
// instruction.Instruction's Value field is `any`, so it travels as
// whatever JSON produces (float64 for numbers, []any for arrays) rather
// than round-tripping the exact Go type SetProperty originally saw; node
// kinds already type-assert defensively (spec C6 StatusInvalidType).
type wireBatch struct {
	Instructions []instruction.Instruction `json:"instructions"`
}

// Sink is how a remote-received batch reaches the engine: the same
// instruction.Queue the local reconciler commits to.
type Sink interface {
	Enqueue(instruction.Batch) error
}

// Bridge hosts a libp2p node that accepts remote batches on batchProtocol
// and forwards them to a Sink.
type Bridge struct {
	host libp2phost.Host
	log  *slog.Logger
}

// Listen starts a libp2p host bound to listenAddrs (multiaddrs, e.g.
// "/ip4/0.0.0.0/tcp/4001") and registers the batch stream handler. It does
// not block; call Close to tear the host down.
func Listen(ctx context.Context, listenAddrs []string, sink Sink, log *slog.Logger) (*Bridge, error) {
	if log == nil {
		log = slog.Default()
	}
	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, fmt.Errorf("remote: generate identity: %w", err)
	}

	opts := []libp2p.Option{libp2p.Identity(priv)}
	if len(listenAddrs) > 0 {
		opts = append(opts, libp2p.ListenAddrStrings(listenAddrs...))
	}
	host, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("remote: start host: %w", err)
	}

	b := &Bridge{host: host, log: log}
	host.SetStreamHandler(batchProtocol, func(s network.Stream) {
		defer s.Close()
		data, err := io.ReadAll(s)
		if err != nil {
			b.log.Warn("remote: stream read failed", "err", err)
			return
		}
		var wb wireBatch
		if err := json.Unmarshal(data, &wb); err != nil {
			b.log.Warn("remote: batch decode failed", "err", err)
			return
		}
		if err := sink.Enqueue(instruction.Batch{Instructions: wb.Instructions}); err != nil {
			b.log.Warn("remote: enqueue failed", "err", err)
		}
	})

	log.Info("remote: listening", "peer_id", host.ID().String())
	return b, nil
}

// ID returns this bridge's libp2p peer ID.
func (b *Bridge) ID() string { return b.host.ID().String() }

// Addrs returns the host's advertised multiaddrs, each with /p2p/<id>
// appended so a peer can dial it directly via SendBatch.
func (b *Bridge) Addrs() []string {
	id := b.host.ID().String()
	out := make([]string, 0, len(b.host.Addrs()))
	for _, a := range b.host.Addrs() {
		out = append(out, fmt.Sprintf("%s/p2p/%s", a.String(), id))
	}
	return out
}

// Close shuts down the libp2p host.
func (b *Bridge) Close() error { return b.host.Close() }

// SendBatch dials peerAddr (a full multiaddr including /p2p/<id>) from
// host and submits batch over a fresh stream.
func SendBatch(ctx context.Context, host libp2phost.Host, peerAddr string, batch instruction.Batch) error {
	maddr, err := ma.NewMultiaddr(peerAddr)
	if err != nil {
		return fmt.Errorf("remote: parse multiaddr: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return fmt.Errorf("remote: parse peer info: %w", err)
	}
	if err := host.Connect(ctx, *info); err != nil {
		return fmt.Errorf("remote: connect: %w", err)
	}
	stream, err := host.NewStream(ctx, info.ID, batchProtocol)
	if err != nil {
		return fmt.Errorf("remote: open stream: %w", err)
	}
	defer stream.Close()

	data, err := json.Marshal(wireBatch{Instructions: batch.Instructions})
	if err != nil {
		return fmt.Errorf("remote: encode batch: %w", err)
	}
	if _, err := stream.Write(data); err != nil {
		return fmt.Errorf("remote: write batch: %w", err)
	}
	return nil
}

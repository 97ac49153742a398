// Command elementaryd hosts the audio-thread engine: render reconciles a
// JSON-encoded node-value forest into an instruction batch, and serve
// runs the engine against a synthetic block clock. Grounded on
// cmd/cli/cmd/root.go's cobra root-command-plus-persistent-flags shape.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/elementary-rt/elementary/internal/config"
	"github.com/elementary-rt/elementary/internal/engine"
	"github.com/elementary-rt/elementary/internal/engine/nodes"
	"github.com/elementary-rt/elementary/internal/engine/relaybridge"
	"github.com/elementary-rt/elementary/internal/instruction"
	"github.com/elementary-rt/elementary/internal/logging"
	"github.com/elementary-rt/elementary/internal/reconcile"
	"github.com/elementary-rt/elementary/internal/remote"
	"github.com/elementary-rt/elementary/internal/value"
)

var (
	configPath string
	inputPath  string
	fadeInMs   float64
	fadeOutMs  float64
	blocks     int
)

var rootCmd = &cobra.Command{
	Use:   "elementaryd",
	Short: "Audio dataflow engine host",
	Long: `elementaryd hosts the declarative audio engine described by the
node-value producer and block-scheduled executor: render diffs a node
tree against a fresh graph and prints the resulting instruction batch;
serve runs the engine continuously against a synthetic block clock.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (defaults searched if empty)")
	rootCmd.AddCommand(renderCmd, serveCmd, resetCmd)

	renderCmd.Flags().StringVar(&inputPath, "input", "", "path to a JSON root-forest document (defaults to stdin)")
	renderCmd.Flags().Float64Var(&fadeInMs, "fade-in-ms", 20, "root fade-in duration in milliseconds")
	renderCmd.Flags().Float64Var(&fadeOutMs, "fade-out-ms", 20, "root fade-out duration in milliseconds")

	serveCmd.Flags().StringVar(&inputPath, "input", "", "path to a JSON root-forest document to render before serving (defaults to stdin)")
	serveCmd.Flags().Float64Var(&fadeInMs, "fade-in-ms", 20, "root fade-in duration in milliseconds")
	serveCmd.Flags().Float64Var(&fadeOutMs, "fade-out-ms", 20, "root fade-out duration in milliseconds")
	serveCmd.Flags().IntVar(&blocks, "blocks", 0, "number of blocks to run before exiting (0 runs until interrupted)")
}

func main() {
	Execute()
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Reconcile a node-value forest into an instruction batch and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		base := logging.New(logging.ParseLevel(cfg.Log.Level), nil)
		log := logging.Component(base, "cli")

		roots, err := readRoots(inputPath)
		if err != nil {
			return err
		}

		queue := instruction.NewQueue(cfg.Engine.QueueCapacity)
		delegate := reconcile.NewQueueDelegate(queue, log)
		renderCtx := value.RenderContext{SampleRate: cfg.Engine.SampleRate, BlockSize: cfg.Engine.BlockSize}
		reconciler := reconcile.New(delegate, renderCtx, log)

		stats, err := reconciler.Render(roots, fadeInMs, fadeOutMs)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}

		for _, batch := range queue.DrainAll() {
			if err := printBatch(batch); err != nil {
				return err
			}
		}
		log.Info("render complete", "nodes_added", stats.NodesAdded, "edges_added", stats.EdgesAdded, "props_written", stats.PropsWritten, "elapsed", stats.ElapsedTime)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine against a synthetic block clock",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Print a RESET-only instruction batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		bld := instruction.NewBuilder()
		bld.Reset()
		batch := bld.Commit()
		return printBatch(batch)
	},
}

func readRoots(path string) ([]value.Value, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return decodeTree(data)
}

func printBatch(batch instruction.Batch) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	base := logging.New(logging.ParseLevel(cfg.Log.Level), nil)
	log := logging.Component(base, "cli")

	roots, err := readRoots(inputPath)
	if err != nil {
		return err
	}

	reg := engine.NewRegistry()
	resources := engine.NewResourceMap()
	nodes.RegisterBuiltins(reg, resources)

	store := engine.NewStore(reg, cfg.Engine.SampleRate, cfg.Engine.BlockSize)
	queue := instruction.NewQueue(cfg.Engine.QueueCapacity)
	relay := engine.NewEventRelay(cfg.Engine.EventCapacity, cfg.Engine.EventRatePerTopic)
	executor := engine.NewExecutor(store, queue, relay, resources, cfg.Engine.SampleRate, cfg.Engine.BlockSize, log)

	delegate := reconcile.NewQueueDelegate(queue, log)
	renderCtx := value.RenderContext{SampleRate: cfg.Engine.SampleRate, BlockSize: cfg.Engine.BlockSize}
	reconciler := reconcile.New(delegate, renderCtx, log)

	stats, err := reconciler.Render(roots, fadeInMs, fadeOutMs)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	log.Info("initial render complete", "nodes_added", stats.NodesAdded, "edges_added", stats.EdgesAdded, "props_written", stats.PropsWritten)

	var bridgeStop chan struct{}
	if cfg.RelayHTTP.Enabled {
		bridge := relaybridge.NewBridge(relay, logging.Component(base, "relaybridge"))
		mux := http.NewServeMux()
		mux.Handle("/events", bridge)
		server := &http.Server{Addr: cfg.RelayHTTP.Addr, Handler: mux}
		bridgeStop = make(chan struct{})
		go bridge.Run(50*time.Millisecond, bridgeStop, func() int64 { return time.Now().UnixMilli() })
		go func() {
			log.Info("relaybridge listening", "addr", cfg.RelayHTTP.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("relaybridge server stopped", "err", err)
			}
		}()
		defer func() {
			close(bridgeStop)
			server.Close()
		}()
	}

	var remoteBridge *remote.Bridge
	if cfg.Remote.Enabled {
		remoteBridge, err = remote.Listen(context.Background(), cfg.Remote.ListenAddrs, queue, logging.Component(base, "remote"))
		if err != nil {
			return fmt.Errorf("remote: %w", err)
		}
		log.Info("remote bridge listening", "peer_id", remoteBridge.ID(), "addrs", remoteBridge.Addrs())
		defer remoteBridge.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	blockDuration := time.Duration(float64(cfg.Engine.BlockSize) / cfg.Engine.SampleRate * float64(time.Second))
	ticker := time.NewTicker(blockDuration)
	defer ticker.Stop()

	outputs := [][]float32{make([]float32, cfg.Engine.BlockSize)}
	sweepEvery := time.Duration(cfg.Engine.SweepIntervalMs) * time.Millisecond
	nextSweep := time.Now().Add(sweepEvery)

	blocksRun := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("serve stopping", "blocks_run", blocksRun)
			return nil
		case <-ticker.C:
			executor.Process(cfg.Engine.BlockSize, outputs)
			blocksRun++
			if time.Now().After(nextSweep) {
				executor.Sweep(cfg.Engine.TerminalGeneration)
				nextSweep = time.Now().Add(sweepEvery)
			}
			if blocks > 0 && blocksRun >= blocks {
				log.Info("serve reached block limit", "blocks_run", blocksRun)
				return nil
			}
		}
	}
}

package node

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/atomiq-chain/atomiq/block"
	"github.com/atomiq-chain/atomiq/config"
	"github.com/atomiq-chain/atomiq/db"
	"github.com/atomiq-chain/atomiq/events"
	"github.com/atomiq-chain/atomiq/exception"
	"github.com/atomiq-chain/atomiq/games"
	"github.com/atomiq-chain/atomiq/jsonrpc"
	"github.com/atomiq-chain/atomiq/logx"
	"github.com/atomiq-chain/atomiq/mempool"
	"github.com/atomiq-chain/atomiq/monitoring"
	"github.com/atomiq-chain/atomiq/producer"
	"github.com/atomiq-chain/atomiq/state"
	"github.com/atomiq-chain/atomiq/store"
	"github.com/atomiq-chain/atomiq/vrf"
)

// Node owns the full engine: storage, state, pool, VRF, producer and
// the RPC surface.
type Node struct {
	cfg   *config.NodeConfig
	dcCfg *config.DirectCommitConfig

	chain     *store.ChainStore
	st        *state.State
	pool      *mempool.Mempool
	engine    *vrf.Engine
	processor *games.Processor
	bus       *events.EventBus
	producer  *producer.DirectCommit
	rpc       *jsonrpc.Server

	metricsStop chan struct{}
}

// New opens storage, rebuilds in-memory state from the chain and
// wires the engine together. Nothing runs until Start.
func New(cfg *config.NodeConfig, dcCfg *config.DirectCommitConfig) (*Node, error) {
	backendCfg := &db.BackendConfig{
		Type:      db.BackendType(cfg.DBBackend),
		Directory: filepath.Join(cfg.DataDir, "chain"),
		RedisAddr: cfg.RedisAddr,
		RedisDB:   cfg.RedisDB,
	}
	provider, err := db.NewProvider(backendCfg)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	iterable, ok := provider.(db.IterableProvider)
	if !ok {
		provider.Close()
		return nil, fmt.Errorf("backend %s does not support prefix iteration", cfg.DBBackend)
	}

	chain, err := store.NewChainStore(iterable)
	if err != nil {
		provider.Close()
		return nil, err
	}

	engine, err := vrf.LoadOrCreate(provider)
	if err != nil {
		provider.Close()
		return nil, err
	}

	st := state.NewState()
	replayed := 0
	err = chain.ReplayBlocks(func(b *block.Block) error {
		for _, tx := range b.Transactions {
			st.Apply(tx)
		}
		replayed++
		return nil
	})
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("rebuilding state: %w", err)
	}

	maxTxID, err := chain.MaxTxID()
	if err != nil {
		provider.Close()
		return nil, err
	}

	height, _ := chain.Tip()
	logx.Info("NODE", fmt.Sprintf("chain loaded: height=%d replayed_blocks=%d max_tx_id=%d", height, replayed, maxTxID))

	pool := mempool.NewMempool(dcCfg.MaxPoolSize, dcCfg.MaxTxDataSize)
	pool.SeedNextID(maxTxID)

	bus := events.NewEventBus()
	processor := games.NewProcessor(engine)
	err = chain.IterateGameResults(func(r *games.Result) bool {
		processor.StoreResult(r)
		return true
	})
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("seeding game result index: %w", err)
	}

	n := &Node{
		cfg:       cfg,
		dcCfg:     dcCfg,
		chain:     chain,
		st:        st,
		pool:      pool,
		engine:    engine,
		processor: processor,
		bus:       bus,
	}
	n.producer = producer.NewDirectCommit(dcCfg, pool, st, chain, processor, bus, cfg.DataDir)
	n.rpc = jsonrpc.NewServer(cfg.ListenAddr, n, n, n)
	return n, nil
}

// Start launches the producer, the RPC server and the metrics surface
func (n *Node) Start() {
	monitoring.InitMetrics()
	n.metricsStop = make(chan struct{})

	if n.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		monitoring.RegisterMetrics(mux)
		exception.SafeGo("metrics-server", func() {
			if err := http.ListenAndServe(n.cfg.MetricsAddr, mux); err != nil {
				logx.Error("NODE", "metrics server stopped:", err)
			}
		})
		exception.SafeGo("system-metrics", func() {
			monitoring.CollectSystemMetrics(n.cfg.DataDir, 15*time.Second, n.metricsStop)
		})
	}

	n.producer.Start()
	n.rpc.Start()
	logx.Info("NODE", "listening on", n.cfg.ListenAddr)
}

// Stop shuts everything down in dependency order: producer first so no
// tick is in flight, then the bus so waiters resolve, then storage.
func (n *Node) Stop() {
	n.producer.Stop()
	n.bus.Close()
	if n.metricsStop != nil {
		close(n.metricsStop)
	}
	if err := n.chain.Close(); err != nil {
		logx.Error("NODE", "closing storage:", err)
	}
	logx.Info("NODE", "shutdown complete")
}

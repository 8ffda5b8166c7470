package monitoring

import (
	"net/http"
	"time"

	"github.com/atomiq-chain/atomiq/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TxRejectedReason string

var (
	TxDataTooLarge  TxRejectedReason = "data_too_large"
	TxPoolFull      TxRejectedReason = "mempool_full"
	TxInvalidNonce  TxRejectedReason = "invalid_nonce"
	TxDecodeFailed  TxRejectedReason = "decode_failed"
	TxVrfSignFailed TxRejectedReason = "vrf_sign_failed"
	TxDuplicated    TxRejectedReason = "duplicated"
	TxRejectedOther TxRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds prometheus.Gauge
	mempoolSize       prometheus.Gauge
	timeToFinality    prometheus.Histogram
	blockTime         prometheus.Histogram
	rejectedTxCount   *prometheus.CounterVec
	blockHeight       prometheus.Gauge
	blockSizeBytes    prometheus.Histogram
	txInBlock         prometheus.Histogram
	ingressTxCount    prometheus.Counter
	blocksCommitted   prometheus.Counter
	commitBatchFails  prometheus.Counter
	prunedBlocks      prometheus.Counter
	gamesPlayed       *prometheus.CounterVec
	panicCount        prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "atomiq_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		mempoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "atomiq_node_mempool_size",
				Help: "The total pending transactions queued in node's transaction pool",
			},
		),
		timeToFinality: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "atomiq_node_time_to_finality",
				Help: "Latency in second from tx submission until being finalized and will not be reverted",
			},
		),
		blockTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "atomiq_node_block_time",
				Help: "Duration in second between assembling of two consecutive blocks",
			},
		),
		rejectedTxCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atomiq_node_rejected_tx_count",
				Help: "The total number of rejected transactions",
			},
			[]string{"reason"},
		),
		blockHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "atomiq_node_block_height",
				Help: "The current block height",
			},
		),
		blockSizeBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "atomiq_node_block_size_bytes",
				Help: "The block size in bytes",
			},
		),
		txInBlock: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "atomiq_node_tx_in_block",
				Help: "Number of tx in block",
			},
		),
		ingressTxCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "atomiq_node_ingress_tx_count",
				Help: "The total number of ingress transactions (received from client)",
			},
		),
		blocksCommitted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "atomiq_node_blocks_committed",
				Help: "The total number of blocks committed by the DirectCommit producer",
			},
		),
		commitBatchFails: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "atomiq_node_commit_batch_failures",
				Help: "The total number of storage batch failures during block commit",
			},
		),
		prunedBlocks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "atomiq_node_pruned_blocks",
				Help: "The total number of block bodies removed by size-based pruning",
			},
		),
		gamesPlayed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atomiq_node_games_played",
				Help: "The total number of executed game bets",
			},
			[]string{"game_type", "outcome"},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "atomiq_node_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var nodeMetrics = newNodePromMetrics()

// InitMetrics marks node startup time on the up gauge
func InitMetrics() {
	nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetMempoolSize(size int) {
	nodeMetrics.mempoolSize.Set(float64(size))
}

func RecordTimeToFinality(duration time.Duration) {
	nodeMetrics.timeToFinality.Observe(duration.Seconds())
}

func RecordBlockTime(duration time.Duration) {
	nodeMetrics.blockTime.Observe(duration.Seconds())
}

func RecordRejectedTx(reason TxRejectedReason) {
	nodeMetrics.rejectedTxCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func SetBlockHeight(blockHeight uint64) {
	nodeMetrics.blockHeight.Set(float64(blockHeight))
}

func RecordBlockSizeBytes(sizeBytes int) {
	nodeMetrics.blockSizeBytes.Observe(float64(sizeBytes))
}

func RecordTxInBlock(txCount int) {
	nodeMetrics.txInBlock.Observe(float64(txCount))
}

func IncreaseIngressTxCount() {
	nodeMetrics.ingressTxCount.Inc()
}

func IncreaseBlocksCommitted() {
	nodeMetrics.blocksCommitted.Inc()
}

func IncreaseCommitBatchFailures() {
	nodeMetrics.commitBatchFails.Inc()
}

func RecordPrunedBlocks(count int) {
	nodeMetrics.prunedBlocks.Add(float64(count))
}

func RecordGamePlayed(gameType, outcome string) {
	nodeMetrics.gamesPlayed.With(prometheus.Labels{
		"game_type": gameType,
		"outcome":   outcome,
	}).Inc()
}

func IncreasePanicCount() {
	nodeMetrics.panicCount.Inc()
}

package jsonrpc

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/atomiq-chain/atomiq/block"
	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/games"
	"github.com/atomiq-chain/atomiq/interfaces"
	"github.com/atomiq-chain/atomiq/transaction"
)

// rpc error codes per engine error family
var rpcErrorCodes = map[errors.EngineErrorCode]int{
	errors.ErrCodeDataTooLarge:         -32001,
	errors.ErrCodePoolFull:             -32002,
	errors.ErrCodeDuplicateTx:          -32003,
	errors.ErrCodeTimeout:              -32004,
	errors.ErrCodeEventChannelClosed:   -32005,
	errors.ErrCodeTransactionNotFound:  -32010,
	errors.ErrCodeBlockNotFound:        -32011,
	errors.ErrCodeGameResultNotFound:   -32012,
	errors.ErrCodeDecodeFailed:         -32020,
	errors.ErrCodeSignatureInvalid:     -32030,
	errors.ErrCodeOutputMismatch:       -32031,
	errors.ErrCodeCoinMismatch:         -32032,
	errors.ErrCodeInputMessageMismatch: -32033,
}

func toJRPC2Error(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*errors.EngineError); ok {
		code, found := rpcErrorCodes[e.Code]
		if !found {
			code = -32000
		}
		return jrpc2.Errorf(jrpc2.Code(code), "%s", e.Message).WithData(e)
	}
	return jrpc2.Errorf(jrpc2.Code(-32000), "%s", err.Error())
}

// --- Params/Results ---

type submitTxParams struct {
	Type   int32  `json:"type"`
	Sender string `json:"sender"`
	Data   string `json:"data"`
	Nonce  uint64 `json:"nonce"`
}

type submitTxResponse struct {
	TransactionID uint64 `json:"transaction_id"`
}

type getTxParams struct {
	TransactionID uint64 `json:"transaction_id"`
}

type txInfo struct {
	ID        uint64 `json:"id"`
	Type      int32  `json:"type"`
	Sender    string `json:"sender"`
	Data      string `json:"data"`
	Timestamp uint64 `json:"timestamp"`
	Nonce     uint64 `json:"nonce"`
	Hash      string `json:"hash"`
}

type getTxResponse struct {
	Tx          txInfo `json:"tx"`
	BlockHeight uint64 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
}

type getBlockByHeightParams struct {
	Height uint64 `json:"height"`
}

type getBlockByHashParams struct {
	Hash string `json:"hash"`
}

type blockInfo struct {
	Height           uint64   `json:"height"`
	Hash             string   `json:"hash"`
	PrevHash         string   `json:"prev_hash"`
	TransactionsRoot string   `json:"transactions_root"`
	StateRoot        string   `json:"state_root"`
	Timestamp        uint64   `json:"timestamp"`
	TxCount          int      `json:"transaction_count"`
	Transactions     []txInfo `json:"transactions"`
}

type playParams struct {
	PlayerAddress string         `json:"player_address"`
	Nonce         uint64         `json:"nonce"`
	GameType      games.GameType `json:"game_type"`
	BetAmount     float64        `json:"bet_amount"`
	Token         games.Token    `json:"token"`
	PlayerChoice  games.CoinSide `json:"player_choice"`
}

type playResponse struct {
	Status        string        `json:"status"`
	TransactionID uint64        `json:"transaction_id"`
	Result        *games.Result `json:"result,omitempty"`
}

type getResultParams struct {
	TransactionID uint64 `json:"transaction_id"`
}

type verifyResponse struct {
	Valid  bool          `json:"valid"`
	Result *games.Result `json:"result"`
}

// --- Server ---

type Server struct {
	addr       string
	txSvc      interfaces.TxService
	chainSvc   interfaces.ChainService
	gameSvc    interfaces.GameService
	corsConfig CORSConfig
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

func NewServer(addr string, txSvc interfaces.TxService, chainSvc interfaces.ChainService, gameSvc interfaces.GameService) *Server {
	s := &Server{
		addr:     addr,
		txSvc:    txSvc,
		chainSvc: chainSvc,
		gameSvc:  gameSvc,
	}
	if cfg, ok := CORSFromEnv(); ok {
		s.corsConfig = cfg
	}
	return s
}

func (s *Server) Start() {
	methods := s.buildMethodMap()
	jh := jhttp.NewBridge(methods, &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		jh.ServeHTTP(w, r)
	})

	http.Handle("/", h)
	go http.ListenAndServe(s.addr, nil)
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(config CORSConfig) {
	s.corsConfig = config
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		"tx.submit": handler.New(func(ctx context.Context, p submitTxParams) (*submitTxResponse, error) {
			tx := &transaction.Transaction{
				Type:   p.Type,
				Sender: p.Sender,
				Data:   []byte(p.Data),
				Nonce:  p.Nonce,
			}
			id, err := s.txSvc.SubmitTransaction(ctx, tx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &submitTxResponse{TransactionID: id}, nil
		}),
		"tx.gettx": handler.New(func(ctx context.Context, p getTxParams) (*getTxResponse, error) {
			found, err := s.txSvc.GetTransaction(ctx, p.TransactionID)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &getTxResponse{
				Tx:          toTxInfo(found.Tx),
				BlockHeight: found.BlockHeight,
				BlockHash:   found.BlockHash,
			}, nil
		}),
		"chain.getblockbyheight": handler.New(func(ctx context.Context, p getBlockByHeightParams) (*blockInfo, error) {
			b, err := s.chainSvc.GetBlockByHeight(ctx, p.Height)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return toBlockInfo(b), nil
		}),
		"chain.getblockbyhash": handler.New(func(ctx context.Context, p getBlockByHashParams) (*blockInfo, error) {
			b, err := s.chainSvc.GetBlockByHash(ctx, p.Hash)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return toBlockInfo(b), nil
		}),
		"chain.getstatus": handler.New(func(ctx context.Context) (*interfaces.ChainStatus, error) {
			status, err := s.chainSvc.GetStatus(ctx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return status, nil
		}),
		"game.play": handler.New(func(ctx context.Context, p playParams) (*playResponse, error) {
			bet := &games.BetData{
				GameType:     p.GameType,
				BetAmount:    p.BetAmount,
				Token:        p.Token,
				PlayerChoice: p.PlayerChoice,
			}
			outcome, err := s.gameSvc.Play(ctx, p.PlayerAddress, p.Nonce, bet)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			resp := &playResponse{TransactionID: outcome.TxID}
			if outcome.Pending {
				resp.Status = "pending"
			} else {
				resp.Status = "complete"
				resp.Result = outcome.Result
			}
			return resp, nil
		}),
		"game.getresult": handler.New(func(ctx context.Context, p getResultParams) (*games.Result, error) {
			result, err := s.gameSvc.GetResult(ctx, p.TransactionID)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return result, nil
		}),
		"game.verify": handler.New(func(ctx context.Context, p getResultParams) (*verifyResponse, error) {
			result, err := s.gameSvc.VerifyResult(ctx, p.TransactionID)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &verifyResponse{Valid: true, Result: result}, nil
		}),
	}
}

func toTxInfo(tx *transaction.Transaction) txInfo {
	return txInfo{
		ID:        tx.ID,
		Type:      tx.Type,
		Sender:    tx.Sender,
		Data:      string(tx.Data),
		Timestamp: tx.Timestamp,
		Nonce:     tx.Nonce,
		Hash:      tx.HashHex(),
	}
}

func toBlockInfo(b *block.Block) *blockInfo {
	txs := make([]txInfo, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = toTxInfo(tx)
	}
	return &blockInfo{
		Height:           b.Height,
		Hash:             b.HashHex(),
		PrevHash:         b.PrevHashHex(),
		TransactionsRoot: fmt.Sprintf("%x", b.TransactionsRoot),
		StateRoot:        fmt.Sprintf("%x", b.StateRoot),
		Timestamp:        b.Timestamp,
		TxCount:          len(txs),
		Transactions:     txs,
	}
}

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsConfig.AllowedOrigins) > 0 {
		if s.corsConfig.AllowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
				if origin == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
	}

	if len(s.corsConfig.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(s.corsConfig.AllowedMethods, ", "))
	}

	if len(s.corsConfig.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(s.corsConfig.AllowedHeaders, ", "))
	}

	if s.corsConfig.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.corsConfig.MaxAge))
	}
}

// CORSFromEnv reads environment variables and constructs a CORSConfig.
// Returns (cfg, true) if any CORS-related env var is set; otherwise (zero, false).
//
// Env vars:
// - CORS_ALLOWED_ORIGINS: comma-separated list
// - CORS_ALLOWED_METHODS: comma-separated list
// - CORS_ALLOWED_HEADERS: comma-separated list
// - CORS_MAX_AGE: integer seconds
func CORSFromEnv() (CORSConfig, bool) {
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	methods := os.Getenv("CORS_ALLOWED_METHODS")
	headers := os.Getenv("CORS_ALLOWED_HEADERS")
	maxAgeStr := os.Getenv("CORS_MAX_AGE")

	var maxAge int
	if maxAgeStr != "" {
		if v, err := strconv.Atoi(maxAgeStr); err == nil {
			maxAge = v
		}
	}

	var allowedOrigins, allowedMethods, allowedHeaders []string
	if origins != "" {
		allowedOrigins = splitAndTrim(origins)
	}
	if methods != "" {
		allowedMethods = splitAndTrim(methods)
	}
	if headers != "" {
		allowedHeaders = splitAndTrim(headers)
	}

	provided := len(allowedOrigins) > 0 || len(allowedMethods) > 0 || len(allowedHeaders) > 0 || maxAge > 0
	if !provided {
		return CORSConfig{}, false
	}

	return CORSConfig{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: allowedMethods,
		AllowedHeaders: allowedHeaders,
		MaxAge:         maxAge,
	}, true
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

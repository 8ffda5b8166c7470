package games

// GameType identifies which game a bet plays
type GameType string

const (
	GameCoinflip GameType = "coinflip"
)

// CoinSide is a coinflip face
type CoinSide string

const (
	CoinHeads CoinSide = "heads"
	CoinTails CoinSide = "tails"
)

// Outcome is the settled result of a bet
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Token is the currency a bet is denominated in. Mint is empty for the
// native token.
type Token struct {
	Symbol string `json:"symbol"`
	Mint   string `json:"mint,omitempty"`
}

var (
	TokenSOL  = Token{Symbol: "SOL"}
	TokenUSDC = Token{Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}
	TokenUSDT = Token{Symbol: "USDT", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"}
)

var supportedTokens = map[string]Token{
	TokenSOL.Symbol:  TokenSOL,
	TokenUSDC.Symbol: TokenUSDC,
	TokenUSDT.Symbol: TokenUSDT,
}

// TokenBySymbol resolves a supported token by its symbol
func TokenBySymbol(symbol string) (Token, bool) {
	token, ok := supportedTokens[symbol]
	return token, ok
}

// BetData is the JSON payload carried in a game transaction's data
type BetData struct {
	GameType     GameType `json:"game_type"`
	BetAmount    float64  `json:"bet_amount"`
	Token        Token    `json:"token"`
	PlayerChoice CoinSide `json:"player_choice"`
}

// VRFBundle carries everything a third party needs to re-verify an
// outcome. Output, proof and public key are lowercase hex, the input
// message is the raw signed string.
type VRFBundle struct {
	VRFOutput    string `json:"vrf_output"`
	VRFProof     string `json:"vrf_proof"`
	PublicKey    string `json:"public_key"`
	InputMessage string `json:"input_message"`
}

// Result is the settled game outcome persisted per transaction
type Result struct {
	TransactionID uint64    `json:"transaction_id"`
	PlayerAddress string    `json:"player_address"`
	GameType      GameType  `json:"game_type"`
	BetAmount     float64   `json:"bet_amount"`
	Token         Token     `json:"token"`
	PlayerChoice  CoinSide  `json:"player_choice"`
	CoinResult    CoinSide  `json:"coin_result"`
	Outcome       Outcome   `json:"outcome"`
	VRF           VRFBundle `json:"vrf"`
	Payout        float64   `json:"payout"`
	Timestamp     uint64    `json:"timestamp"`
	BlockHeight   uint64    `json:"block_height"`
	BlockHash     string    `json:"block_hash"`
}

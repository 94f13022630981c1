package venue

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"sharkspread/internal/apperr"
	"sharkspread/internal/domain"
)

const pairABI = `[
 {"inputs":[],"name":"getReserves","outputs":[{"internalType":"uint112","name":"_reserve0","type":"uint112"},{"internalType":"uint112","name":"_reserve1","type":"uint112"},{"internalType":"uint32","name":"_blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

// stableDecimals is the decimal count of the USDT/BUSD quote side on BSC.
const stableDecimals = 18

// ethCaller is the slice of ethclient used by the reader, split out so
// tests can substitute a stub.
type ethCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PancakeReserves derives a spot price from a Pancake v2 pair's
// reserves. The pair is assumed to quote against an 18-decimal stable.
type PancakeReserves struct {
	ec  ethCaller
	abi abi.ABI
}

// NewPancakeReserves dials a BSC RPC endpoint and prepares the pair ABI.
func NewPancakeReserves(rpcURL string) (*PancakeReserves, error) {
	parsed, err := abi.JSON(strings.NewReader(pairABI))
	if err != nil {
		return nil, fmt.Errorf("parse pair abi: %w", err)
	}
	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial bsc rpc: %w", err)
	}
	return &PancakeReserves{ec: ec, abi: parsed}, nil
}

// newPancakeReservesWithCaller is the test seam.
func newPancakeReservesWithCaller(ec ethCaller) (*PancakeReserves, error) {
	parsed, err := abi.JSON(strings.NewReader(pairABI))
	if err != nil {
		return nil, err
	}
	return &PancakeReserves{ec: ec, abi: parsed}, nil
}

// Price reads getReserves and token0 from the pair contract and
// returns reserveQuote/reserveBase adjusted for decimals.
func (r *PancakeReserves) Price(ctx context.Context, tok domain.Token) (*domain.TokenPrice, error) {
	if tok.PairAddress == "" {
		return nil, apperr.New(apperr.KindBadInput, "token has no BSC pair address")
	}
	pair := common.HexToAddress(tok.PairAddress)

	reserve0, reserve1, err := r.getReserves(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("getReserves %s: %w", tok.Symbol, err)
	}

	token0, err := r.token0(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("token0 %s: %w", tok.Symbol, err)
	}

	// token0 ordering decides which reserve is the base asset.
	base, quote := reserve0, reserve1
	if tok.Address != "" && common.HexToAddress(tok.Address) != token0 {
		base, quote = reserve1, reserve0
	}

	if base.Sign() == 0 {
		// Drained pool: no quote rather than a division blowup.
		return &domain.TokenPrice{
			Symbol:    strings.ToUpper(tok.Symbol),
			Venue:     domain.VenuePancake,
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	decimals := tok.Decimals
	if decimals == 0 {
		decimals = 18
	}

	price := toFloat(quote, stableDecimals) / toFloat(base, decimals)
	liq := 2 * toFloat(quote, stableDecimals)

	return &domain.TokenPrice{
		Symbol:    strings.ToUpper(tok.Symbol),
		Venue:     domain.VenuePancake,
		Price:     price,
		Liquidity: &liq,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (r *PancakeReserves) getReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	data, err := r.abi.Pack("getReserves")
	if err != nil {
		return nil, nil, err
	}
	out, err := r.ec.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data}, nil)
	if err != nil {
		return nil, nil, err
	}
	vals, err := r.abi.Unpack("getReserves", out)
	if err != nil {
		return nil, nil, err
	}
	if len(vals) < 2 {
		return nil, nil, fmt.Errorf("getReserves returned %d values", len(vals))
	}
	reserve0, ok0 := vals[0].(*big.Int)
	reserve1, ok1 := vals[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("getReserves returned unexpected types")
	}
	return reserve0, reserve1, nil
}

func (r *PancakeReserves) token0(ctx context.Context, pair common.Address) (common.Address, error) {
	data, err := r.abi.Pack("token0")
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.ec.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	vals, err := r.abi.Unpack("token0", out)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("token0 returned unexpected type")
	}
	return addr, nil
}

func toFloat(v *big.Int, decimals int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f / math.Pow10(decimals)
}

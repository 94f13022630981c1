package venue

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"sharkspread/internal/domain"
)

func TestPancake_Price_PicksDeepestPancakePair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/tokens/0xabc" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"pairs":[
			{"chainId":"bsc","dexId":"pancakeswap","priceUsd":"0.50","liquidity":{"usd":1000}},
			{"chainId":"ethereum","dexId":"uniswap","priceUsd":"0.99","liquidity":{"usd":900000}},
			{"chainId":"bsc","dexId":"pancakeswap","priceUsd":"0.52","liquidity":{"usd":50000}},
			{"chainId":"bsc","dexId":"biswap","priceUsd":"0.40","liquidity":{"usd":70000}}
		]}`))
	}))
	defer server.Close()

	client := NewPancake(server.URL, nil)
	p, err := client.Price(context.Background(), domain.Token{Symbol: "SHARK", Address: "0xabc"})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Price != 0.52 {
		t.Errorf("price = %v, want 0.52 (deepest pancake pair)", p.Price)
	}
	if p.Liquidity == nil || *p.Liquidity != 50000 {
		t.Errorf("liquidity = %v, want 50000", p.Liquidity)
	}
}

func TestPancake_Price_NoMatchingPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{"chainId":"ethereum","dexId":"uniswap","priceUsd":"1.0"}]}`))
	}))
	defer server.Close()

	client := NewPancake(server.URL, nil)
	p, err := client.Price(context.Background(), domain.Token{Symbol: "SHARK", Address: "0xabc"})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Price != 0 {
		t.Errorf("price = %v, want 0 (no quote)", p.Price)
	}
}

func TestPancake_Price_RejectsMissingAddress(t *testing.T) {
	client := NewPancake("http://unused", nil)
	if _, err := client.Price(context.Background(), domain.Token{Symbol: "SHARK"}); err == nil {
		t.Fatal("expected error for token without contract address")
	}
}

// stubCaller answers getReserves and token0 calls from canned values.
type stubCaller struct {
	abi      *PancakeReserves
	reserve0 *big.Int
	reserve1 *big.Int
	token0   common.Address
}

func (s *stubCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	selector := common.Bytes2Hex(msg.Data[:4])
	switch selector {
	case "0902f1ac": // getReserves()
		return s.abi.abi.Methods["getReserves"].Outputs.Pack(s.reserve0, s.reserve1, uint32(0))
	case "0dfe1681": // token0()
		return s.abi.abi.Methods["token0"].Outputs.Pack(s.token0)
	default:
		return nil, nil
	}
}

func TestPancakeReserves_Price(t *testing.T) {
	tokenAddr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	reader, err := newPancakeReservesWithCaller(nil)
	if err != nil {
		t.Fatalf("newPancakeReservesWithCaller: %v", err)
	}
	// 1000 tokens (18 dec) against 520 stable units: price 0.52.
	stub := &stubCaller{
		abi:      reader,
		reserve0: mulPow10(1000, 18),
		reserve1: mulPow10(520, 18),
		token0:   tokenAddr,
	}
	reader.ec = stub

	p, err := reader.Price(context.Background(), domain.Token{
		Symbol:      "SHARK",
		Address:     tokenAddr.Hex(),
		PairAddress: "0x2222222222222222222222222222222222222222",
		Decimals:    18,
	})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Price < 0.5199 || p.Price > 0.5201 {
		t.Errorf("price = %v, want ~0.52", p.Price)
	}
	if p.Liquidity == nil || *p.Liquidity < 1039 || *p.Liquidity > 1041 {
		t.Errorf("liquidity = %v, want ~1040", p.Liquidity)
	}
}

func TestPancakeReserves_Price_FlippedOrdering(t *testing.T) {
	tokenAddr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAddr := common.HexToAddress("0x3333333333333333333333333333333333333333")

	reader, err := newPancakeReservesWithCaller(nil)
	if err != nil {
		t.Fatalf("newPancakeReservesWithCaller: %v", err)
	}
	// token is token1, so reserve0 is the stable side.
	stub := &stubCaller{
		abi:      reader,
		reserve0: mulPow10(520, 18),
		reserve1: mulPow10(1000, 18),
		token0:   otherAddr,
	}
	reader.ec = stub

	p, err := reader.Price(context.Background(), domain.Token{
		Symbol:      "SHARK",
		Address:     tokenAddr.Hex(),
		PairAddress: "0x2222222222222222222222222222222222222222",
		Decimals:    18,
	})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Price < 0.5199 || p.Price > 0.5201 {
		t.Errorf("price = %v, want ~0.52", p.Price)
	}
}

func TestPancakeReserves_Price_DrainedPool(t *testing.T) {
	reader, err := newPancakeReservesWithCaller(nil)
	if err != nil {
		t.Fatalf("newPancakeReservesWithCaller: %v", err)
	}
	stub := &stubCaller{
		abi:      reader,
		reserve0: big.NewInt(0),
		reserve1: big.NewInt(0),
		token0:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
	reader.ec = stub

	p, err := reader.Price(context.Background(), domain.Token{
		Symbol:      "SHARK",
		Address:     "0x1111111111111111111111111111111111111111",
		PairAddress: "0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Price != 0 {
		t.Errorf("price = %v, want 0 for drained pool", p.Price)
	}
}

func mulPow10(n int64, exp int) *big.Int {
	v := big.NewInt(n)
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
}

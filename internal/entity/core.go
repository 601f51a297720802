package entity

import (
	"github.com/shopspring/decimal"
)

// Factory holds protocol-wide aggregates.
type Factory struct {
	ID                string          `json:"id"`
	PairCount         int64           `json:"pairCount"`
	TotalVolumeUSD    decimal.Decimal `json:"totalVolumeUSD"`
	TotalVolumeETH    decimal.Decimal `json:"totalVolumeETH"`
	TotalLiquidityUSD decimal.Decimal `json:"totalLiquidityUSD"`
	TotalLiquidityETH decimal.Decimal `json:"totalLiquidityETH"`
	TxCount           int64           `json:"txCount"`
}

func (f *Factory) Kind() Kind       { return KindFactory }
func (f *Factory) EntityID() string { return f.ID }

// Bundle holds the reference asset's USD price.
type Bundle struct {
	ID       string          `json:"id"`
	EthPrice decimal.Decimal `json:"ethPrice"`
}

func (b *Bundle) Kind() Kind       { return KindBundle }
func (b *Bundle) EntityID() string { return b.ID }

type Token struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Decimals       int32           `json:"decimals"`
	TotalLiquidity decimal.Decimal `json:"totalLiquidity"`
	TradeVolume    decimal.Decimal `json:"tradeVolume"`
	TradeVolumeUSD decimal.Decimal `json:"tradeVolumeUSD"`
	TxCount        int64           `json:"txCount"`
	DerivedETH     decimal.Decimal `json:"derivedETH"`
	DerivedUSD     decimal.Decimal `json:"derivedUSD"`
	AllPairs       []string        `json:"allPairs"`
}

func (t *Token) Kind() Kind       { return KindToken }
func (t *Token) EntityID() string { return t.ID }

// AddPair records a pool the token participates in, once.
func (t *Token) AddPair(pairID string) {
	for _, p := range t.AllPairs {
		if p == pairID {
			return
		}
	}
	t.AllPairs = append(t.AllPairs, pairID)
}

type Pair struct {
	ID                   string          `json:"id"`
	Token0               string          `json:"token0"`
	Token1               string          `json:"token1"`
	Reserve0             decimal.Decimal `json:"reserve0"`
	Reserve1             decimal.Decimal `json:"reserve1"`
	TotalSupply          decimal.Decimal `json:"totalSupply"`
	ReserveETH           decimal.Decimal `json:"reserveETH"`
	ReserveUSD           decimal.Decimal `json:"reserveUSD"`
	TrackedReserveETH    decimal.Decimal `json:"trackedReserveETH"`
	TrackedReserveUSD    decimal.Decimal `json:"trackedReserveUSD"`
	Token0Price          decimal.Decimal `json:"token0Price"`
	Token1Price          decimal.Decimal `json:"token1Price"`
	VolumeToken0         decimal.Decimal `json:"volumeToken0"`
	VolumeToken1         decimal.Decimal `json:"volumeToken1"`
	VolumeUSD            decimal.Decimal `json:"volumeUSD"`
	TxCount              int64           `json:"txCount"`
	LPExtraFeeInToken0   decimal.Decimal `json:"lpExtraFeeInToken0"`
	LPExtraFeeInToken1   decimal.Decimal `json:"lpExtraFeeInToken1"`
	LiquidityPositions   []string        `json:"liquidityPositions"`
	CreatedAtTimestamp   uint64          `json:"createdAtTimestamp"`
	CreatedAtBlockNumber uint64          `json:"createdAtBlockNumber"`
}

func (p *Pair) Kind() Kind       { return KindPair }
func (p *Pair) EntityID() string { return p.ID }

// Side reports whether token is side 0 or 1 of the pair.
func (p *Pair) Side(token string) (int, bool) {
	switch token {
	case p.Token0:
		return 0, true
	case p.Token1:
		return 1, true
	}
	return 0, false
}

// Other returns the token opposite to token in the pair.
func (p *Pair) Other(token string) string {
	if token == p.Token0 {
		return p.Token1
	}
	return p.Token0
}

// QuoteFor returns the pair's price of token in units of the other token.
func (p *Pair) QuoteFor(token string) decimal.Decimal {
	if token == p.Token0 {
		return p.Token1Price
	}
	return p.Token0Price
}

// AddPosition records a LiquidityPosition id, once.
func (p *Pair) AddPosition(id string) {
	for _, existing := range p.LiquidityPositions {
		if existing == id {
			return
		}
	}
	p.LiquidityPositions = append(p.LiquidityPositions, id)
}

type User struct {
	ID         string          `json:"id"`
	USDSwapped decimal.Decimal `json:"usdSwapped"`
}

func (u *User) Kind() Kind       { return KindUser }
func (u *User) EntityID() string { return u.ID }

type LiquidityPosition struct {
	ID                    string          `json:"id"`
	User                  string          `json:"user"`
	Pair                  string          `json:"pair"`
	LiquidityTokenBalance decimal.Decimal `json:"liquidityTokenBalance"`
	PoolOwnership         decimal.Decimal `json:"poolOwnership"`
}

func (l *LiquidityPosition) Kind() Kind       { return KindLiquidityPosition }
func (l *LiquidityPosition) EntityID() string { return l.ID }

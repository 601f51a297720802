// Package rollup keeps the per-day and per-hour bucket entities.
package rollup

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/store"
)

const (
	secondsPerDay  = 86400
	secondsPerHour = 3600
)

func DayIndex(ts int64) int64  { return ts / secondsPerDay }
func HourIndex(ts int64) int64 { return ts / secondsPerHour }
func DayStart(ts int64) int64  { return DayIndex(ts) * secondsPerDay }
func HourStart(ts int64) int64 { return HourIndex(ts) * secondsPerHour }

// Snapshot is the state copied into the buckets after a reserve-changing event.
type Snapshot struct {
	Timestamp int64
	Factory   *entity.Factory
	Pair      *entity.Pair
	Token0    *entity.Token
	Token1    *entity.Token
	EthPrice  decimal.Decimal
}

// Buckets are the bucket entities touched by one event. All of them are
// already saved in the unit of work they were loaded from.
type Buckets struct {
	FactoryDay *entity.FactoryDayData
	PairDay    *entity.PairDayData
	PairHour   *entity.PairHourData
	Token0Day  *entity.TokenDayData
	Token1Day  *entity.TokenDayData
	Token0Hour *entity.TokenHourData
	Token1Hour *entity.TokenHourData

	token0   *entity.Token
	token1   *entity.Token
	ethPrice decimal.Decimal
}

// SwapVolume is the volume a swap adds to its buckets.
type SwapVolume struct {
	Amount0          decimal.Decimal
	Amount1          decimal.Decimal
	TrackedAmountUSD decimal.Decimal
	TrackedAmountETH decimal.Decimal
}

type Aggregator struct{}

func New() *Aggregator {
	return &Aggregator{}
}

// Update loads or creates every bucket for the snapshot's timestamp, copies
// the current reserves, prices and liquidity into them and counts one
// transaction.
func (a *Aggregator) Update(tx *store.Tx, s Snapshot) (*Buckets, error) {
	day := DayIndex(s.Timestamp)
	hour := HourIndex(s.Timestamp)

	b := &Buckets{token0: s.Token0, token1: s.Token1, ethPrice: s.EthPrice}
	var err error

	if b.FactoryDay, err = a.factoryDay(tx, s.Factory, day); err != nil {
		return nil, err
	}
	if b.PairDay, err = a.pairDay(tx, s.Pair, day); err != nil {
		return nil, err
	}
	if b.PairHour, err = a.pairHour(tx, s.Pair, hour); err != nil {
		return nil, err
	}
	if b.Token0Day, err = a.tokenDay(tx, s.Token0, day, s.EthPrice); err != nil {
		return nil, err
	}
	if b.Token1Day, err = a.tokenDay(tx, s.Token1, day, s.EthPrice); err != nil {
		return nil, err
	}
	if b.Token0Hour, err = a.tokenHour(tx, s.Token0, hour, s.EthPrice); err != nil {
		return nil, err
	}
	if b.Token1Hour, err = a.tokenHour(tx, s.Token1, hour, s.EthPrice); err != nil {
		return nil, err
	}
	return b, nil
}

// AddSwapVolume accumulates a swap's volume into buckets returned by Update.
// Token volumes in the reference asset use each token's own derived price.
func (a *Aggregator) AddSwapVolume(b *Buckets, v SwapVolume) {
	b.FactoryDay.DailyVolumeUSD = b.FactoryDay.DailyVolumeUSD.Add(v.TrackedAmountUSD)
	b.FactoryDay.DailyVolumeETH = b.FactoryDay.DailyVolumeETH.Add(v.TrackedAmountETH)

	b.PairDay.DailyVolumeToken0 = b.PairDay.DailyVolumeToken0.Add(v.Amount0)
	b.PairDay.DailyVolumeToken1 = b.PairDay.DailyVolumeToken1.Add(v.Amount1)
	b.PairDay.DailyVolumeUSD = b.PairDay.DailyVolumeUSD.Add(v.TrackedAmountUSD)

	b.PairHour.HourlyVolumeToken0 = b.PairHour.HourlyVolumeToken0.Add(v.Amount0)
	b.PairHour.HourlyVolumeToken1 = b.PairHour.HourlyVolumeToken1.Add(v.Amount1)
	b.PairHour.HourlyVolumeUSD = b.PairHour.HourlyVolumeUSD.Add(v.TrackedAmountUSD)

	eth0 := v.Amount0.Mul(b.token0.DerivedETH)
	eth1 := v.Amount1.Mul(b.token1.DerivedETH)

	addTokenDay(b.Token0Day, v.Amount0, eth0, eth0.Mul(b.ethPrice))
	addTokenDay(b.Token1Day, v.Amount1, eth1, eth1.Mul(b.ethPrice))
	addTokenHour(b.Token0Hour, v.Amount0, eth0, eth0.Mul(b.ethPrice))
	addTokenHour(b.Token1Hour, v.Amount1, eth1, eth1.Mul(b.ethPrice))
}

func addTokenDay(d *entity.TokenDayData, amount, eth, usd decimal.Decimal) {
	d.DailyVolumeToken = d.DailyVolumeToken.Add(amount)
	d.DailyVolumeETH = d.DailyVolumeETH.Add(eth)
	d.DailyVolumeUSD = d.DailyVolumeUSD.Add(usd)
}

func addTokenHour(d *entity.TokenHourData, amount, eth, usd decimal.Decimal) {
	d.HourlyVolumeToken = d.HourlyVolumeToken.Add(amount)
	d.HourlyVolumeETH = d.HourlyVolumeETH.Add(eth)
	d.HourlyVolumeUSD = d.HourlyVolumeUSD.Add(usd)
}

func (a *Aggregator) factoryDay(tx *store.Tx, f *entity.Factory, day int64) (*entity.FactoryDayData, error) {
	id := strconv.FormatInt(day, 10)
	d, ok, err := tx.FindFactoryDayData(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		d = &entity.FactoryDayData{ID: id, Date: day * secondsPerDay}
	}
	d.TotalVolumeETH = f.TotalVolumeETH
	d.TotalVolumeUSD = f.TotalVolumeUSD
	d.TotalLiquidityETH = f.TotalLiquidityETH
	d.TotalLiquidityUSD = f.TotalLiquidityUSD
	d.TxCount++
	tx.Save(d)
	return d, nil
}

func (a *Aggregator) pairDay(tx *store.Tx, p *entity.Pair, day int64) (*entity.PairDayData, error) {
	id := entity.BucketID(p.ID, day)
	d, ok, err := tx.FindPairDayData(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		d = &entity.PairDayData{
			ID:          id,
			Date:        day * secondsPerDay,
			PairAddress: p.ID,
			Token0:      p.Token0,
			Token1:      p.Token1,
		}
	}
	d.Reserve0 = p.Reserve0
	d.Reserve1 = p.Reserve1
	d.TotalSupply = p.TotalSupply
	d.ReserveUSD = p.ReserveUSD
	d.DailyTxns++
	tx.Save(d)
	return d, nil
}

func (a *Aggregator) pairHour(tx *store.Tx, p *entity.Pair, hour int64) (*entity.PairHourData, error) {
	id := entity.BucketID(p.ID, hour)
	d, ok, err := tx.FindPairHourData(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		d = &entity.PairHourData{ID: id, HourStartUnix: hour * secondsPerHour, Pair: p.ID}
	}
	d.Reserve0 = p.Reserve0
	d.Reserve1 = p.Reserve1
	d.ReserveUSD = p.ReserveUSD
	d.HourlyTxns++
	tx.Save(d)
	return d, nil
}

func (a *Aggregator) tokenDay(tx *store.Tx, t *entity.Token, day int64, ethPrice decimal.Decimal) (*entity.TokenDayData, error) {
	id := entity.BucketID(t.ID, day)
	d, ok, err := tx.FindTokenDayData(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		d = &entity.TokenDayData{ID: id, Date: day * secondsPerDay, Token: t.ID}
	}
	d.PriceUSD = t.DerivedETH.Mul(ethPrice)
	d.TotalLiquidityToken = t.TotalLiquidity
	d.TotalLiquidityETH = t.TotalLiquidity.Mul(t.DerivedETH)
	d.TotalLiquidityUSD = d.TotalLiquidityETH.Mul(ethPrice)
	d.DailyTxns++
	tx.Save(d)
	return d, nil
}

func (a *Aggregator) tokenHour(tx *store.Tx, t *entity.Token, hour int64, ethPrice decimal.Decimal) (*entity.TokenHourData, error) {
	id := entity.BucketID(t.ID, hour)
	d, ok, err := tx.FindTokenHourData(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		d = &entity.TokenHourData{ID: id, HourStartUnix: hour * secondsPerHour, Token: t.ID}
	}
	d.PriceUSD = t.DerivedETH.Mul(ethPrice)
	d.TotalLiquidityToken = t.TotalLiquidity
	d.TotalLiquidityETH = t.TotalLiquidity.Mul(t.DerivedETH)
	d.TotalLiquidityUSD = d.TotalLiquidityETH.Mul(ethPrice)
	d.HourlyTxns++
	tx.Save(d)
	return d, nil
}

package entity

import (
	"github.com/shopspring/decimal"
)

type FactoryDayData struct {
	ID                string          `json:"id"`
	Date              int64           `json:"date"`
	DailyVolumeETH    decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeUSD    decimal.Decimal `json:"dailyVolumeUSD"`
	TotalVolumeETH    decimal.Decimal `json:"totalVolumeETH"`
	TotalVolumeUSD    decimal.Decimal `json:"totalVolumeUSD"`
	TotalLiquidityETH decimal.Decimal `json:"totalLiquidityETH"`
	TotalLiquidityUSD decimal.Decimal `json:"totalLiquidityUSD"`
	TxCount           int64           `json:"txCount"`
}

func (d *FactoryDayData) Kind() Kind       { return KindFactoryDayData }
func (d *FactoryDayData) EntityID() string { return d.ID }

type PairDayData struct {
	ID                string          `json:"id"`
	Date              int64           `json:"date"`
	PairAddress       string          `json:"pairAddress"`
	Token0            string          `json:"token0"`
	Token1            string          `json:"token1"`
	Reserve0          decimal.Decimal `json:"reserve0"`
	Reserve1          decimal.Decimal `json:"reserve1"`
	TotalSupply       decimal.Decimal `json:"totalSupply"`
	ReserveUSD        decimal.Decimal `json:"reserveUSD"`
	DailyVolumeToken0 decimal.Decimal `json:"dailyVolumeToken0"`
	DailyVolumeToken1 decimal.Decimal `json:"dailyVolumeToken1"`
	DailyVolumeUSD    decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns         int64           `json:"dailyTxns"`
}

func (d *PairDayData) Kind() Kind       { return KindPairDayData }
func (d *PairDayData) EntityID() string { return d.ID }

type PairHourData struct {
	ID                 string          `json:"id"`
	HourStartUnix      int64           `json:"hourStartUnix"`
	Pair               string          `json:"pair"`
	Reserve0           decimal.Decimal `json:"reserve0"`
	Reserve1           decimal.Decimal `json:"reserve1"`
	ReserveUSD         decimal.Decimal `json:"reserveUSD"`
	HourlyVolumeToken0 decimal.Decimal `json:"hourlyVolumeToken0"`
	HourlyVolumeToken1 decimal.Decimal `json:"hourlyVolumeToken1"`
	HourlyVolumeUSD    decimal.Decimal `json:"hourlyVolumeUSD"`
	HourlyTxns         int64           `json:"hourlyTxns"`
}

func (d *PairHourData) Kind() Kind       { return KindPairHourData }
func (d *PairHourData) EntityID() string { return d.ID }

type TokenDayData struct {
	ID                  string          `json:"id"`
	Date                int64           `json:"date"`
	Token               string          `json:"token"`
	DailyVolumeToken    decimal.Decimal `json:"dailyVolumeToken"`
	DailyVolumeETH      decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeUSD      decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns           int64           `json:"dailyTxns"`
	TotalLiquidityToken decimal.Decimal `json:"totalLiquidityToken"`
	TotalLiquidityETH   decimal.Decimal `json:"totalLiquidityETH"`
	TotalLiquidityUSD   decimal.Decimal `json:"totalLiquidityUSD"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
}

func (d *TokenDayData) Kind() Kind       { return KindTokenDayData }
func (d *TokenDayData) EntityID() string { return d.ID }

type TokenHourData struct {
	ID                  string          `json:"id"`
	HourStartUnix       int64           `json:"hourStartUnix"`
	Token               string          `json:"token"`
	HourlyVolumeToken   decimal.Decimal `json:"hourlyVolumeToken"`
	HourlyVolumeETH     decimal.Decimal `json:"hourlyVolumeETH"`
	HourlyVolumeUSD     decimal.Decimal `json:"hourlyVolumeUSD"`
	HourlyTxns          int64           `json:"hourlyTxns"`
	TotalLiquidityToken decimal.Decimal `json:"totalLiquidityToken"`
	TotalLiquidityETH   decimal.Decimal `json:"totalLiquidityETH"`
	TotalLiquidityUSD   decimal.Decimal `json:"totalLiquidityUSD"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
}

func (d *TokenHourData) Kind() Kind       { return KindTokenHourData }
func (d *TokenHourData) EntityID() string { return d.ID }

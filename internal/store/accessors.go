package store

import (
	"github.com/emiswap/indexer/internal/entity"
)

// Find* return false for an absent entity. Get* treat absence as an ordering
// violation and return a *MissingEntityError.

func (tx *Tx) FindFactory(id string) (*entity.Factory, bool, error) {
	return find[entity.Factory](tx, entity.KindFactory, id)
}

func (tx *Tx) GetFactory(id string) (*entity.Factory, error) {
	return get[entity.Factory](tx, entity.KindFactory, id)
}

func (tx *Tx) FindBundle(id string) (*entity.Bundle, bool, error) {
	return find[entity.Bundle](tx, entity.KindBundle, id)
}

func (tx *Tx) GetBundle(id string) (*entity.Bundle, error) {
	return get[entity.Bundle](tx, entity.KindBundle, id)
}

func (tx *Tx) FindToken(id string) (*entity.Token, bool, error) {
	return find[entity.Token](tx, entity.KindToken, id)
}

func (tx *Tx) GetToken(id string) (*entity.Token, error) {
	return get[entity.Token](tx, entity.KindToken, id)
}

func (tx *Tx) FindPair(id string) (*entity.Pair, bool, error) {
	return find[entity.Pair](tx, entity.KindPair, id)
}

func (tx *Tx) GetPair(id string) (*entity.Pair, error) {
	return get[entity.Pair](tx, entity.KindPair, id)
}

func (tx *Tx) FindUser(id string) (*entity.User, bool, error) {
	return find[entity.User](tx, entity.KindUser, id)
}

func (tx *Tx) GetUser(id string) (*entity.User, error) {
	return get[entity.User](tx, entity.KindUser, id)
}

func (tx *Tx) FindLiquidityPosition(id string) (*entity.LiquidityPosition, bool, error) {
	return find[entity.LiquidityPosition](tx, entity.KindLiquidityPosition, id)
}

func (tx *Tx) GetLiquidityPosition(id string) (*entity.LiquidityPosition, error) {
	return get[entity.LiquidityPosition](tx, entity.KindLiquidityPosition, id)
}

func (tx *Tx) FindTransaction(id string) (*entity.Transaction, bool, error) {
	return find[entity.Transaction](tx, entity.KindTransaction, id)
}

func (tx *Tx) GetTransaction(id string) (*entity.Transaction, error) {
	return get[entity.Transaction](tx, entity.KindTransaction, id)
}

func (tx *Tx) FindMint(id string) (*entity.Mint, bool, error) {
	return find[entity.Mint](tx, entity.KindMint, id)
}

func (tx *Tx) GetMint(id string) (*entity.Mint, error) {
	return get[entity.Mint](tx, entity.KindMint, id)
}

func (tx *Tx) FindBurn(id string) (*entity.Burn, bool, error) {
	return find[entity.Burn](tx, entity.KindBurn, id)
}

func (tx *Tx) GetBurn(id string) (*entity.Burn, error) {
	return get[entity.Burn](tx, entity.KindBurn, id)
}

func (tx *Tx) FindSwap(id string) (*entity.Swap, bool, error) {
	return find[entity.Swap](tx, entity.KindSwap, id)
}

func (tx *Tx) GetSwap(id string) (*entity.Swap, error) {
	return get[entity.Swap](tx, entity.KindSwap, id)
}

func (tx *Tx) FindFactoryDayData(id string) (*entity.FactoryDayData, bool, error) {
	return find[entity.FactoryDayData](tx, entity.KindFactoryDayData, id)
}

func (tx *Tx) GetFactoryDayData(id string) (*entity.FactoryDayData, error) {
	return get[entity.FactoryDayData](tx, entity.KindFactoryDayData, id)
}

func (tx *Tx) FindPairDayData(id string) (*entity.PairDayData, bool, error) {
	return find[entity.PairDayData](tx, entity.KindPairDayData, id)
}

func (tx *Tx) GetPairDayData(id string) (*entity.PairDayData, error) {
	return get[entity.PairDayData](tx, entity.KindPairDayData, id)
}

func (tx *Tx) FindPairHourData(id string) (*entity.PairHourData, bool, error) {
	return find[entity.PairHourData](tx, entity.KindPairHourData, id)
}

func (tx *Tx) GetPairHourData(id string) (*entity.PairHourData, error) {
	return get[entity.PairHourData](tx, entity.KindPairHourData, id)
}

func (tx *Tx) FindTokenDayData(id string) (*entity.TokenDayData, bool, error) {
	return find[entity.TokenDayData](tx, entity.KindTokenDayData, id)
}

func (tx *Tx) GetTokenDayData(id string) (*entity.TokenDayData, error) {
	return get[entity.TokenDayData](tx, entity.KindTokenDayData, id)
}

func (tx *Tx) FindTokenHourData(id string) (*entity.TokenHourData, bool, error) {
	return find[entity.TokenHourData](tx, entity.KindTokenHourData, id)
}

func (tx *Tx) GetTokenHourData(id string) (*entity.TokenHourData, error) {
	return get[entity.TokenHourData](tx, entity.KindTokenHourData, id)
}

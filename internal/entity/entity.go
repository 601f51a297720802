// Package entity defines the derived analytics entities and their identifiers.
package entity

import (
	"fmt"
	"strings"
)

// Kind names an entity table.
type Kind string

const (
	KindFactory           Kind = "factory"
	KindBundle            Kind = "bundle"
	KindToken             Kind = "token"
	KindPair              Kind = "pair"
	KindUser              Kind = "user"
	KindLiquidityPosition Kind = "liquidity_position"
	KindTransaction       Kind = "transaction"
	KindMint              Kind = "mint"
	KindBurn              Kind = "burn"
	KindSwap              Kind = "swap"
	KindFactoryDayData    Kind = "factory_day_data"
	KindPairDayData       Kind = "pair_day_data"
	KindPairHourData      Kind = "pair_hour_data"
	KindTokenDayData      Kind = "token_day_data"
	KindTokenHourData     Kind = "token_hour_data"
)

// Entity is implemented by every persisted record.
type Entity interface {
	Kind() Kind
	EntityID() string
}

// BundleID is the id of the singleton Bundle.
const BundleID = "1"

// ZeroAddress is the null address used by mint and burn transfers.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress lowercases a hex address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// ChildID returns the id of the index-th mint, burn or swap of a transaction.
func ChildID(txHash string, index int) string {
	return fmt.Sprintf("%s-%d", txHash, index)
}

// PositionID returns the LiquidityPosition id for a user in a pair.
func PositionID(pair, user string) string {
	return pair + "-" + user
}

// BucketID returns the rollup id of an entity within a bucket.
func BucketID(entityID string, bucket int64) string {
	return fmt.Sprintf("%s-%d", entityID, bucket)
}

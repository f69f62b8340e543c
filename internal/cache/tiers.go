package cache

import (
	"github.com/redis/go-redis/v9"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// Tiers bundles the two cache tiers the consumer keeps coherent (spec
// §3.3, §9): the derived blockchain-facts record and the admin-curated
// label record, each under its own Redis key prefix.
type Tiers struct {
	BlockchainData WriteCache[domain.AssetBlockchainData]
	UserDefined    WriteCache[domain.AssetUserDefinedData]
}

// NewTiers builds both tiers against one Redis client (spec §6.2: two
// caches, two distinct prefixes, one configurable separator).
func NewTiers(client *redis.Client, blockchainDataPrefix, userDefinedPrefix, separator string) *Tiers {
	return &Tiers{
		BlockchainData: NewRedisCache[domain.AssetBlockchainData](client, blockchainDataPrefix, separator),
		UserDefined:    NewRedisCache[domain.AssetUserDefinedData](client, userDefinedPrefix, separator),
	}
}

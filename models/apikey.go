package models

import "github.com/google/uuid"

// ApiKey is a whitelisted market maker credential. The plaintext key is
// shown once at generation time by the (out-of-scope) key-generation
// utility; only its Argon2id PHC hash is ever persisted (spec.md §3, §4.10).
type ApiKey struct {
	ID           uuid.UUID `json:"id"`
	MarketMaker  string    `json:"market_maker"`
	Hash         string    `json:"-"`
}

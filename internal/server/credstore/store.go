// Package credstore provides the credential store adapter: a set of named
// string-to-string mappings held in an external key-value store. Three
// backends are available (in-memory, Redis, Postgres); the forward key
// mapping is the source of truth and the reverse index is treated as a
// rebuildable cache.
package credstore

import "context"

// Mapping names one of the independently-addressed key spaces.
type Mapping string

const (
	// MappingUsers maps email -> password digest.
	MappingUsers Mapping = "users"
	// MappingKeys maps email -> active API key.
	MappingKeys Mapping = "keys"
	// MappingKeyByMail is the reverse index, API key -> email.
	MappingKeyByMail Mapping = "keybymail"
	// MappingPasses maps email -> last issued wallet pass object ID.
	MappingPasses Mapping = "passes"
)

// Op is a single write in a batched Apply call.
type Op struct {
	Mapping Mapping
	Key     string
	Value   string
	Remove  bool
}

// PutOp returns an Op that writes value under key in the given mapping.
func PutOp(m Mapping, key, value string) Op {
	return Op{Mapping: m, Key: key, Value: value}
}

// DeleteOp returns an Op that removes key from the given mapping.
func DeleteOp(m Mapping, key string) Op {
	return Op{Mapping: m, Key: key, Remove: true}
}

// Store is the contract the credential services operate against. Get returns
// common.ErrorNotFound for absent keys. Apply executes the given writes as a
// single batch; backends that support transactions (Redis, Postgres) apply
// them atomically, keeping the forward and reverse key mappings in lock-step.
type Store interface {
	Get(ctx context.Context, m Mapping, key string) (string, error)
	Put(ctx context.Context, m Mapping, key, value string) error
	Delete(ctx context.Context, m Mapping, key string) error
	Apply(ctx context.Context, ops ...Op) error
	Close() error
}

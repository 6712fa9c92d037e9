// Package store is the persisted key/value configuration surface. The core
// treats it as synchronous and infallible: every Put is durable when it
// returns, and Get falls back to the supplied default.
package store

// KV is the namespace-scoped key/value contract.
type KV interface {
	GetString(key, def string) string
	PutString(key, val string)
	GetInt(key string, def int) int
	PutInt(key string, val int)
	GetBool(key string, def bool) bool
	PutBool(key string, val bool)
}

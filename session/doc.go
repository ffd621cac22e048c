// Package session owns refresh-token records and the access-token blacklist.
//
// # Refresh registry
//
// A [Registry] holds one [Record] per refresh tokenId plus a per-principal index of
// active token IDs. Records move ACTIVE → REVOKED → PURGED and never back. Revoked
// records stay readable until their purge deadline so late use reports
// TOKEN_REVOKED rather than TOKEN_NOT_FOUND.
//
// [MemoryRegistry] keeps state in process and loses it on restart. [RedisRegistry]
// stores the same state in Redis hashes, sets and sorted sets, using Lua scripts
// for the touch and revoke transitions.
//
// # Blacklist
//
// [CacheBlacklist] (go-cache) and [RedisBlacklist] store SHA-256 digests of access
// tokens with a TTL at least as long as the access-token lifetime.
//
// # What this package must NOT do
//
//   - Parse or sign tokens; that belongs to the jwt package.
//   - Enforce session caps or emit audit events; the engine does both.
//   - Store raw bearer tokens.
package session

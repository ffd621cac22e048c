// Package store defines the persistence boundary for credentials and second-factor
// state, plus an in-memory implementation.
//
// Implementations guarantee read-your-writes per key. Nothing here is transactional
// across keys; the two atomic operations are MarkBackupCodeUsed (compare-and-set on
// one code) and UpdateSMSChallenge (read-modify-write on one challenge).
//
// Durable implementations live in the redisstore and boltstore sub-packages. Errors
// wrap the NOT_FOUND and ALREADY_EXISTS kinds so callers can test them with errors.Is.
package store

// Package middleware adapts Engine token verification to net/http.
//
// # Guards
//
//   - [RequireAccess]: signature, claims and blacklist only.
//   - [RequireSession]: as RequireAccess, and the principal must still hold an
//     active refresh record.
//
// Both read the Authorization bearer token and store the verified claims in the
// request context, retrievable with [ClaimsFromContext]. Rejections are JSON
// bodies of the form {"error": "<KIND>"}.
//
// [ClientMeta] records the peer address and User-Agent for Login and IssuePair.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Make decisions beyond pass or reject.
package middleware

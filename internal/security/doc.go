// Package security derives the security posture report exposed by
// goVault.Engine.SecurityReport from raw configuration.
//
// # What this package must NOT do
//
//   - Copy secrets or key material into a report.
//   - Depend on the root package.
package security

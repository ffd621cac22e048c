package flows

// Deps groups flow dependency sets. The root engine builds this once at Build and
// hands the matching set to each request method.
type Deps struct {
	Credentials CredentialDeps
	Tokens      TokenDeps
	TOTP        TOTPDeps
	BackupCodes BackupCodeDeps
	SMS         SMSDeps
	TwoFactor   TwoFactorDeps
}

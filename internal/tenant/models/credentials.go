package models

// DirectoryCredentials is the decrypted view of a tenant's directory
// credentials, produced on demand for a token exchange. It never touches
// storage; callers must not retain it.
type DirectoryCredentials struct {
	ApplicationID string
	DirectoryID   string
	ClientSecret  string
}

//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// CredentialField names a credential entry of the settings
// ENUM(vfs_email,vfs_password,telegram_token,telegram_chat_id)
type CredentialField string

// BrowserFlag names a browser behaviour toggle
// ENUM(headless,anti_detection,session_persistence)
type BrowserFlag string

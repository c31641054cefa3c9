//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// Severity classifies a user-facing status message
// ENUM(success,error,info)
type Severity string

//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// Status is the lifecycle state of a monitoring session
// ENUM(idle,running)
type Status string

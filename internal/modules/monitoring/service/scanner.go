package service

import (
	"context"
	"log/slog"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
)

// IdleScanner stands in for the browser-driven scraper. It performs no
// network traffic and never reports appointments.
type IdleScanner struct {
	logger *slog.Logger
}

// NewIdleScanner creates the placeholder scanner.
func NewIdleScanner(logger *slog.Logger) *IdleScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleScanner{logger: logger}
}

func (s *IdleScanner) Scan(ctx context.Context, countryCode string, offices []string) (domain.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScanResult{}, err
	}
	s.logger.Debug("Scan pass", "country", countryCode, "offices", offices)
	return domain.ScanResult{Details: "no scraper configured"}, nil
}

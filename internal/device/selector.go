package device

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Selector picks the devices that take part in a broadcast.
type Selector struct {
	repo   Repository
	logger zerolog.Logger
}

// NewSelector creates a new device selector.
func NewSelector(repo Repository, logger zerolog.Logger) *Selector {
	return &Selector{repo: repo, logger: logger}
}

// Select returns the targets among barcodes whose battery level is at or
// above minBattery. An empty result is not an error.
func (s *Selector) Select(ctx context.Context, barcodes []string, minBattery int) ([]Target, error) {
	devices, err := s.repo.FindEligible(ctx, EligibleQuery{
		Barcodes:        barcodes,
		MinBatteryLevel: minBattery,
	})
	if err != nil {
		s.logger.Error().Err(err).Int("roster", len(barcodes)).Msg("failed to query devices")
		return nil, fmt.Errorf("%w: %w", ErrDataAccess, err)
	}

	s.logger.Info().
		Int("roster", len(barcodes)).
		Int("min_battery_lvl", minBattery).
		Int("found", len(devices)).
		Msg("selected devices")

	targets := make([]Target, 0, len(devices))
	for _, d := range devices {
		targets = append(targets, d.Target())
	}
	return targets, nil
}

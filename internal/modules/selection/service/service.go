package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	notificationDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/domain"
	notificationService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/service"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/selection/domain"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

// Service tracks the active country and the offices selected within it.
//
// Changing country prunes offices the new country does not have; offices
// shared by both countries stay selected.
type Service struct {
	catalog   *countryDomain.Catalog
	notifier  notificationService.Sink
	mu        sync.RWMutex
	country   countryDomain.Country
	offices   map[string]struct{}
	listeners []func()
}

// New creates a selection scoped to defaultCountry with no offices selected.
func New(catalog *countryDomain.Catalog, defaultCountry string, notifier notificationService.Sink) (*Service, error) {
	country, ok := catalog.Lookup(defaultCountry)
	if !ok {
		return nil, apperrors.Validation("country", "unknown country", "country", defaultCountry)
	}
	return &Service{
		catalog:  catalog,
		notifier: notifier,
		country:  country,
		offices:  make(map[string]struct{}),
	}, nil
}

// Subscribe registers fn to run after every selection change.
func (s *Service) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SelectCountry switches the active country.
func (s *Service) SelectCountry(ctx context.Context, code string) error {
	country, ok := s.catalog.Lookup(code)
	if !ok {
		err := apperrors.Validation("country", "unknown country", "country", code)
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError, fmt.Sprintf("unknown country %q", code))
		return err
	}

	s.mu.Lock()
	s.country = country
	valid := country.OfficeIDs()
	pruned := lo.Filter(lo.Keys(s.offices), func(id string, _ int) bool {
		return !lo.Contains(valid, id)
	})
	slices.Sort(pruned)
	for _, id := range pruned {
		delete(s.offices, id)
	}
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	slog.Info("Country selected", "country", country.Code, "pruned_offices", pruned)
	if len(pruned) > 0 {
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityInfo,
			fmt.Sprintf("offices not served for %s were deselected: %v", country.DisplayName, pruned))
	}

	s.publish(listeners)
	return nil
}

// ToggleOffice selects the office if absent, deselects it otherwise, and
// reports the resulting membership.
func (s *Service) ToggleOffice(ctx context.Context, name string) (bool, error) {
	id := countryDomain.NormalizeOffice(name)

	s.mu.Lock()
	if !s.country.HasOffice(id) {
		country := s.country.DisplayName
		s.mu.Unlock()
		notificationService.Notify(ctx, s.notifier, notificationDomain.SeverityError,
			fmt.Sprintf("%q is not an office of %s", name, country))
		return false, apperrors.Validation("office", "unknown office", "office", name, "country", country)
	}

	_, selected := s.offices[id]
	if selected {
		delete(s.offices, id)
	} else {
		s.offices[id] = struct{}{}
	}
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	slog.Debug("Office toggled", "office", id, "selected", !selected)
	s.publish(listeners)
	return !selected, nil
}

// Country returns the active country.
func (s *Service) Country() countryDomain.Country {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.country
}

// Countries returns the reference table.
func (s *Service) Countries() []countryDomain.Country {
	return s.catalog.All()
}

// Offices returns the selected office ids in sorted order.
func (s *Service) Offices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := lo.Keys(s.offices)
	slices.Sort(ids)
	return ids
}

// Contains reports whether the office is selected.
func (s *Service) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.offices[countryDomain.NormalizeOffice(name)]
	return ok
}

// Len returns the number of selected offices.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offices)
}

// Snapshot returns a copy of the current selection.
func (s *Service) Snapshot() domain.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := lo.Keys(s.offices)
	slices.Sort(ids)
	return domain.Selection{Country: s.country.Code, Offices: ids}
}

func (s *Service) publish(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

package service

import (
	"context"
	"reflect"
	"testing"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	notificationDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/domain"
	notificationService "github.com/yilmazeyup/vfs-global-tracker/internal/modules/notification/service"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

func newSelection(t *testing.T) (*Service, *notificationService.Recorder) {
	t.Helper()
	rec := notificationService.NewRecorder(10)
	svc, err := New(countryDomain.DefaultCatalog(), "netherlands", rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, rec
}

func TestNewRejectsUnknownCountry(t *testing.T) {
	if _, err := New(countryDomain.DefaultCatalog(), "atlantis", nil); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestToggleOfficeIsAnInvolution(t *testing.T) {
	svc, _ := newSelection(t)
	ctx := context.Background()

	if _, err := svc.ToggleOffice(ctx, "Ankara"); err != nil {
		t.Fatalf("toggle ankara: %v", err)
	}
	before := svc.Offices()

	for _, name := range []string{"İstanbul", "istanbul"} {
		if _, err := svc.ToggleOffice(ctx, name); err != nil {
			t.Fatalf("toggle %q: %v", name, err)
		}
	}

	if after := svc.Offices(); !reflect.DeepEqual(before, after) {
		t.Fatalf("double toggle changed selection: %v -> %v", before, after)
	}
}

func TestToggleOfficeReportsMembership(t *testing.T) {
	svc, _ := newSelection(t)
	ctx := context.Background()

	selected, err := svc.ToggleOffice(ctx, "ISTANBUL")
	if err != nil || !selected {
		t.Fatalf("first toggle: selected=%v err=%v", selected, err)
	}
	if !svc.Contains("İstanbul") || svc.Len() != 1 {
		t.Fatalf("istanbul should be selected, got %v", svc.Offices())
	}

	selected, err = svc.ToggleOffice(ctx, "istanbul")
	if err != nil || selected {
		t.Fatalf("second toggle: selected=%v err=%v", selected, err)
	}
	if svc.Len() != 0 {
		t.Fatalf("selection should be empty, got %v", svc.Offices())
	}
}

func TestToggleOfficeRejectsForeignOffice(t *testing.T) {
	svc, rec := newSelection(t)

	_, err := svc.ToggleOffice(context.Background(), "İzmir")
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if svc.Len() != 0 {
		t.Fatal("rejected toggle must not change the selection")
	}
	if last, ok := rec.Last(); !ok || last.Severity != notificationDomain.SeverityError {
		t.Fatalf("expected error notification, got %+v", last)
	}
}

func TestSelectCountryPrunesStaleOffices(t *testing.T) {
	svc, rec := newSelection(t)
	ctx := context.Background()

	for _, name := range []string{"ankara", "istanbul"} {
		if _, err := svc.ToggleOffice(ctx, name); err != nil {
			t.Fatalf("toggle %s: %v", name, err)
		}
	}

	if err := svc.SelectCountry(ctx, "germany"); err != nil {
		t.Fatalf("SelectCountry: %v", err)
	}

	snap := svc.Snapshot()
	if snap.Country != "germany" {
		t.Fatalf("country = %q", snap.Country)
	}
	// ankara has no German office; istanbul does.
	if !reflect.DeepEqual(snap.Offices, []string{"istanbul"}) {
		t.Fatalf("unexpected offices after switch: %v", snap.Offices)
	}
	if last, ok := rec.Last(); !ok || last.Severity != notificationDomain.SeverityInfo {
		t.Fatalf("expected info notification about pruning, got %+v", last)
	}
}

func TestSelectCountryOnlyStaleSelectionBecomesEmpty(t *testing.T) {
	svc, _ := newSelection(t)
	ctx := context.Background()

	if _, err := svc.ToggleOffice(ctx, "ankara"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := svc.SelectCountry(ctx, "germany"); err != nil {
		t.Fatalf("SelectCountry: %v", err)
	}
	if !svc.Snapshot().Empty() {
		t.Fatalf("ankara must be dropped, got %v", svc.Offices())
	}
}

func TestSelectCountryUnknownLeavesStateUnchanged(t *testing.T) {
	svc, _ := newSelection(t)
	ctx := context.Background()

	if _, err := svc.ToggleOffice(ctx, "ankara"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := svc.SelectCountry(ctx, "atlantis"); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if svc.Country().Code != "netherlands" || !svc.Contains("ankara") {
		t.Fatal("state changed after rejected country switch")
	}
}

func TestSubscribersRunOnChange(t *testing.T) {
	svc, _ := newSelection(t)
	ctx := context.Background()

	calls := 0
	svc.Subscribe(func() { calls++ })

	_, _ = svc.ToggleOffice(ctx, "ankara")
	_ = svc.SelectCountry(ctx, "france")
	_, _ = svc.ToggleOffice(ctx, "nowhere")

	if calls != 2 {
		t.Fatalf("expected 2 change events, got %d", calls)
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/feed/domain"
	monitoringDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
)

type historyStub struct {
	records []*monitoringDomain.ScanRecord
	err     error
	limit   int
}

func (h *historyStub) SaveRecord(context.Context, *monitoringDomain.ScanRecord) error { return nil }

func (h *historyStub) GetRecentRecords(_ context.Context, limit int) ([]*monitoringDomain.ScanRecord, error) {
	h.limit = limit
	return h.records, h.err
}

func (h *historyStub) Close() error { return nil }

func TestGenerateFeed(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	history := &historyStub{records: []*monitoringDomain.ScanRecord{
		{
			ID:                "b",
			Country:           "germany",
			Offices:           []string{"izmir"},
			ScannedAt:         at.Add(5 * time.Minute),
			AppointmentsFound: 1,
			Appointments:      []monitoringDomain.Appointment{{Office: "izmir", Date: "2026-03-10", Time: "10:30"}},
		},
		{ID: "a", Country: "germany", Offices: []string{"izmir"}, ScannedAt: at, Error: "timeout"},
	}}

	svc := New(history, countryDomain.DefaultCatalog(), domain.DefaultFeedConfig(), time.UTC)
	feed, err := svc.GenerateFeed(context.Background(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("GenerateFeed: %v", err)
	}

	if history.limit != 50 {
		t.Fatalf("requested %d records, want 50", history.limit)
	}
	if feed.Link.Href != "http://localhost:8080/rss" {
		t.Fatalf("feed link = %q", feed.Link.Href)
	}
	if !feed.Updated.Equal(at.Add(5 * time.Minute)) {
		t.Fatalf("feed updated = %v", feed.Updated)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(feed.Items))
	}
	if got := feed.Items[0].Title; got != "Germany: 1 appointment(s) found" {
		t.Fatalf("first title = %q", got)
	}
	if !strings.Contains(feed.Items[0].Content, "2026-03-10") {
		t.Fatalf("content misses appointment: %q", feed.Items[0].Content)
	}
	if got := feed.Items[1].Title; got != "Germany: scan failed" {
		t.Fatalf("second title = %q", got)
	}

	rss, err := feed.ToRss()
	if err != nil {
		t.Fatalf("ToRss: %v", err)
	}
	if !strings.Contains(rss, "<rss") {
		t.Fatalf("unexpected rss output: %s", rss)
	}
}

func TestGenerateFeedHistoryError(t *testing.T) {
	svc := New(&historyStub{err: errors.New("boom")}, countryDomain.DefaultCatalog(), domain.DefaultFeedConfig(), nil)
	if _, err := svc.GenerateFeed(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/samber/lo"
	"github.com/samber/oops"

	countryDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/country/domain"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/feed/domain"
	monitoringDomain "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/domain"
	monitoringRepo "github.com/yilmazeyup/vfs-global-tracker/internal/modules/monitoring/repository"
)

// Service handles RSS feed generation over the scan history
type Service struct {
	history monitoringRepo.Repository
	catalog *countryDomain.Catalog
	config  domain.FeedConfig
	loc     *time.Location
}

// New creates a new feed service
func New(history monitoringRepo.Repository, catalog *countryDomain.Catalog, config domain.FeedConfig, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		history: history,
		catalog: catalog,
		config:  config,
		loc:     loc,
	}
}

// GenerateFeed builds a feed of the most recent scans, newest first.
func (s *Service) GenerateFeed(ctx context.Context, baseURL string) (*feeds.Feed, error) {
	records, err := s.history.GetRecentRecords(ctx, s.config.Limit)
	if err != nil {
		return nil, oops.With("limit", s.config.Limit, "context", "failed to get scan history").Wrap(err)
	}

	link := strings.TrimRight(baseURL, "/") + s.config.Path
	feed := &feeds.Feed{
		Title:       s.config.Title,
		Link:        &feeds.Link{Href: link},
		Description: s.config.Description,
		Created:     time.Now(),
	}

	if len(records) > 0 {
		feed.Updated = records[0].ScannedAt
	}

	feed.Items = lo.Map(records, func(record *monitoringDomain.ScanRecord, _ int) *feeds.Item {
		return s.recordToFeedItem(record, link)
	})
	return feed, nil
}

func (s *Service) recordToFeedItem(record *monitoringDomain.ScanRecord, link string) *feeds.Item {
	country := record.Country
	if c, ok := s.catalog.Lookup(record.Country); ok {
		country = c.DisplayName
	}

	var title string
	switch {
	case !record.Succeeded():
		title = fmt.Sprintf("%s: scan failed", country)
	case record.AppointmentsFound > 0:
		title = fmt.Sprintf("%s: %d appointment(s) found", country, record.AppointmentsFound)
	default:
		title = fmt.Sprintf("%s: no appointments", country)
	}

	description := fmt.Sprintf("Scanned %s at %s",
		strings.Join(record.Offices, ", "),
		record.ScannedAt.In(s.loc).Format("2006-01-02 15:04:05"))
	if record.Error != "" {
		description += "\nError: " + record.Error
	}

	content := fmt.Sprintf("<p>%s</p>", html.EscapeString(description))
	if len(record.Appointments) > 0 {
		content += "<p><strong>Appointments:</strong></p><ul>"
		for _, a := range record.Appointments {
			content += fmt.Sprintf("<li>%s %s %s</li>",
				html.EscapeString(a.Office), html.EscapeString(a.Date), html.EscapeString(a.Time))
		}
		content += "</ul>"
	}

	return &feeds.Item{
		Title:       title,
		Link:        &feeds.Link{Href: link + "#" + record.ID},
		Description: description,
		Content:     content,
		Created:     record.ScannedAt,
		Id:          record.ID,
	}
}

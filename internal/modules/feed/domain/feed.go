package domain

// FeedConfig represents RSS feed configuration
type FeedConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Limit       int    `json:"limit"`
}

// DefaultFeedConfig describes the scan history feed served at /rss.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Title:       "VFS appointment scans",
		Description: "Scan history of the VFS Global appointment tracker",
		Path:        "/rss",
		Limit:       50,
	}
}

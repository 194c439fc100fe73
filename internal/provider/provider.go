package provider

import "context"

// Show contains catalog metadata for a podcast.
type Show struct {
	Title        string
	FeedURL      string
	Link         string
	Description  string
	Author       string
	Categories   []string
	EpisodeCount int
}

// Provider is the interface that podcast metadata providers must implement.
type Provider interface {
	Name() string
	FindShows(ctx context.Context, name string) ([]Show, error)
}

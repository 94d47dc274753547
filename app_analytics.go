package main

import (
	"log"

	"github.com/posthog/posthog-go"
)

// Linker flags
var (
	PostHogKey  string
	PostHogHost string
	AppVersion  string = "0.0.0-dev"
)

// newAnalyticsClient initializes PostHog. Builds without a key run with
// analytics disabled.
func newAnalyticsClient() posthog.Client {
	if PostHogKey == "" {
		return nil
	}

	client, err := posthog.NewWithConfig(PostHogKey, posthog.Config{
		Endpoint: PostHogHost,
	})
	if err != nil {
		log.Printf("Failed to initialize PostHog: %v", err)
		return nil
	}
	return client
}

// TrackEvent sends an event to PostHog
func (a *App) TrackEvent(event string, props map[string]interface{}) {
	if a.phClient == nil {
		return
	}
	a.phClient.Enqueue(posthog.Capture{
		DistinctId: "backend_user", // Ideally should be unique per install
		Event:      event,
		Properties: props,
	})
}

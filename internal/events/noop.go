package events

import "context"

// NoopPublisher discards events. Used when JOBS_NATS_URL is not set; lane
// moves are still recorded in the store and streamed over SSE.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }

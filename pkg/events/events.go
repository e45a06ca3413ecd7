// Package events publishes asset lifecycle notifications. Publishing is
// strictly best-effort: the retrieval flow never fails because an event
// could not be delivered.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeAssetIngested = "asset.ingested"
	TypeAssetsDeleted = "assets.deleted"
)

// Event is one asset lifecycle notification.
type Event struct {
	Type     string    `json:"type"`
	AssetID  string    `json:"asset_id,omitempty"`
	OwnerKey string    `json:"owner_key,omitempty"`
	Location string    `json:"location,omitempty"`
	Matched  int       `json:"matched,omitempty"`
	Deleted  int       `json:"deleted,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher delivers events to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards all events. Used when no broker is configured.
type NopPublisher struct{}

// Nop returns a publisher that discards everything.
func Nop() *NopPublisher {
	return &NopPublisher{}
}

func (*NopPublisher) Publish(context.Context, Event) error { return nil }

func (*NopPublisher) Close() error { return nil }

var _ Publisher = (*NopPublisher)(nil)

package fediverse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fedilisten/fedilisten/internal/webfinger"
	"github.com/fedilisten/fedilisten/models"
	"gorm.io/gorm"
)

// actorFreshness is how long a resolved actor is served from storage
// before it is re-discovered.
const actorFreshness = time.Hour

// Directory resolves acct: handles to stored actors, refreshing stale
// entries in place via WebFinger and a profile fetch.
type Directory struct {
	client *Client
	actors *models.Actors
}

func NewDirectory(client *Client, db *gorm.DB) *Directory {
	return &Directory{
		client: client,
		actors: models.NewActors(db),
	}
}

// Resolve returns the actor for an acct:user@host resource. A stored
// actor checked within the last hour is returned as-is; otherwise the
// handle is re-discovered and the stored actor upserted.
func (d *Directory) Resolve(ctx context.Context, resource string) (*models.Actor, error) {
	acct, err := webfinger.Parse(resource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}

	existing, err := d.actors.FindByHandle(acct.User, acct.Instance())
	switch {
	case err == nil:
		if existing.CheckedWithin(actorFreshness) {
			return existing, nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = nil
	default:
		return nil, err
	}

	discovery, err := d.client.Discover(ctx, acct.String())
	if err != nil {
		return nil, err
	}
	if discovery.ActorURL == "" {
		return nil, fmt.Errorf("%w: no self link for %s", ErrNotFound, acct.String())
	}
	profile, err := d.client.FetchProfile(ctx, discovery.ActorURL)
	if err != nil {
		return nil, err
	}

	actor := existing
	if actor == nil {
		actor = &models.Actor{
			ActorID:     profile.ID,
			Username:    acct.User,
			InstanceURL: acct.Instance(),
		}
	}
	now := time.Now()
	actor.ActorType = profile.Type
	actor.InboxURL = profile.Inbox
	actor.OutboxURL = profile.Outbox
	actor.SharedInboxURL = profile.SharedInbox
	actor.ProfileData = profile.Data()
	actor.LastCheckedAt = &now
	if err := d.actors.Save(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

package fediverse

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fedilisten/fedilisten/events"
	"github.com/fedilisten/fedilisten/models"
	"gorm.io/gorm"
)

// Poller walks actor outboxes page by page, persisting and publishing
// every activity it has not seen before. Each poll invocation is one
// sequential loop; many invocations may run concurrently and share only
// the rate limiter's per-instance state.
type Poller struct {
	client     *Client
	limiter    *Limiter
	actors     *models.Actors
	activities *models.Activities
	publisher  events.Publisher
	maxPages   int
}

// NewPoller returns a Poller fetching at most maxPages pages per
// invocation.
func NewPoller(client *Client, limiter *Limiter, db *gorm.DB, publisher events.Publisher, maxPages int) *Poller {
	if maxPages <= 0 {
		maxPages = 5
	}
	return &Poller{
		client:     client,
		limiter:    limiter,
		actors:     models.NewActors(db),
		activities: models.NewActivities(db),
		publisher:  publisher,
		maxPages:   maxPages,
	}
}

// PollActor looks up a stored actor by its canonical URI and polls its
// outbox.
func (p *Poller) PollActor(ctx context.Context, actorID, tagID string) (int, error) {
	actor, err := p.actors.FindByActorID(actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: actor %s", ErrNotFound, actorID)
		}
		return 0, err
	}
	return p.PollOutbox(ctx, actor.OutboxURL, actor.InstanceURL, tagID), nil
}

// PollOutbox polls the outbox at outboxURL, following next links up to
// the page cap. It returns the number of newly collected activities.
// Partial failure is not an error: on a mid-poll fetch or store failure
// the instance is penalised, the loop stops, and the activities collected
// from completed pages stay committed. Cancelling the context stops the
// loop cleanly between requests.
func (p *Poller) PollOutbox(ctx context.Context, outboxURL, instanceURL, tagID string) int {
	if outboxURL == "" {
		log.Printf("fediverse: poll skipped: empty outbox url")
		return 0
	}
	instance := instanceURL
	if instance == "" {
		instance = p.limiter.InstanceFromURL(outboxURL)
	}

	currentURL := outboxURL
	if !strings.Contains(currentURL, "?") {
		// request the first page, not the bare collection
		currentURL += "?page=true"
	}

	collected, pages := 0, 0
	for currentURL != "" && pages < p.maxPages {
		if err := p.limiter.Acquire(ctx, currentURL); err != nil {
			log.Printf("fediverse: poll interrupted: %v", err)
			break
		}
		page, err := p.client.FetchObject(ctx, currentURL)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("fediverse: poll interrupted: %v", ctx.Err())
				break
			}
			log.Printf("fediverse: error polling %s: %v", currentURL, err)
			p.limiter.RecordBackoff(currentURL)
			break
		}
		if len(page) == 0 {
			break
		}

		failed := false
		for _, activity := range ParseOutbox(page, instance) {
			fresh, err := p.saveAndPublish(ctx, activity, tagID)
			if err != nil {
				log.Printf("fediverse: error storing activity from %s: %v", currentURL, err)
				p.limiter.RecordBackoff(currentURL)
				failed = true
				break
			}
			if fresh {
				collected++
			}
		}
		if failed {
			break
		}

		currentURL = NextPageURL(page)
		pages++
	}

	log.Printf("fediverse: outbox poll complete: %d new activities from %d pages of %s", collected, pages, outboxURL)
	return collected
}

// saveAndPublish persists one activity and publishes it downstream. It
// reports false for activities without an id and for duplicates, whether
// caught by the existence pre-check or by the sink's unique-key rejection.
func (p *Poller) saveAndPublish(ctx context.Context, activity *ParsedActivity, tagID string) (bool, error) {
	if activity.ActivityID == "" {
		return false, nil
	}
	exists, err := p.activities.ExistsByActivityID(activity.ActivityID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := p.activities.Create(&models.Activity{
		ActivityID:   activity.ActivityID,
		ActivityType: activity.ActivityType,
		ActorID:      activity.ActorID,
		ObjectID:     activity.ObjectID,
		ObjectType:   activity.ObjectType,
		Content:      activity.Content,
		PublishedAt:  activity.PublishedAt,
		InstanceURL:  activity.InstanceURL,
		TagID:        tagID,
		RawData:      activity.RawData,
	}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost the race to a concurrent poller
			return false, nil
		}
		return false, err
	}
	if err := p.publisher.Publish(ctx, &events.Event{
		ActivityID:   activity.ActivityID,
		ActivityType: activity.ActivityType,
		ActorID:      activity.ActorID,
		ObjectID:     activity.ObjectID,
		ObjectType:   activity.ObjectType,
		Content:      activity.Content,
		PublishedAt:  activity.PublishedAt,
		InstanceURL:  activity.InstanceURL,
		TagID:        tagID,
		RawData:      activity.RawData,
	}); err != nil {
		// the record is committed; delivery retries are the relay's job
		log.Printf("fediverse: publish failed for %s: %v", activity.ActivityID, err)
	}
	return true, nil
}

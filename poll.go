package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedilisten/fedilisten/events"
	"github.com/fedilisten/fedilisten/fediverse"
	"github.com/fedilisten/fedilisten/internal/group"
	"github.com/fedilisten/fedilisten/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PollCmd struct {
	Resource  string        `help:"Poll a single actor by acct: handle and exit." placeholder:"ACCT"`
	Actor     string        `help:"Poll a single stored actor by URI and exit." placeholder:"URI"`
	Tag       string        `help:"Correlation tag attached to published events."`
	Interval  time.Duration `help:"Interval between polling sweeps." default:"5m"`
	Once      bool          `help:"Run a single sweep over all stored actors and exit."`
	LogEvents bool          `help:"Log events instead of writing them to the outbox table."`
}

func (p *PollCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	if err := configureDB(db); err != nil {
		return err
	}

	var publisher events.Publisher = events.NewOutboxPublisher(db)
	if p.LogEvents {
		publisher = events.LogPublisher{}
	}
	client := ctx.Conf.Client()
	poller := fediverse.NewPoller(client, ctx.Conf.Limiter(), db, publisher, ctx.Conf.MaxPagesPerPoll)

	tag := p.Tag
	if tag == "" {
		tag = uuid.New().String()
	}

	switch {
	case p.Resource != "":
		actor, err := fediverse.NewDirectory(client, db).Resolve(context.Background(), p.Resource)
		if err != nil {
			return err
		}
		n := poller.PollOutbox(context.Background(), actor.OutboxURL, actor.InstanceURL, tag)
		fmt.Println("collected", n, "new activities from", actor.ActorID)
		return nil
	case p.Actor != "":
		n, err := poller.PollActor(context.Background(), p.Actor, tag)
		if err != nil {
			return err
		}
		fmt.Println("collected", n, "new activities from", p.Actor)
		return nil
	}

	g := group.New(context.Background())
	g.AddContext(func(gctx context.Context) error {
		for {
			if err := sweep(gctx, db, poller, tag); err != nil {
				return err
			}
			if p.Once {
				return nil
			}
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(p.Interval):
			}
		}
	})
	g.AddContext(func(gctx context.Context) error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-gctx.Done():
		case <-sig:
			fmt.Println("shutting down")
		}
		return nil
	})
	return g.Wait()
}

// sweep polls every stored actor once. Cancellation between actors stops
// the sweep; what was already collected stays committed.
func sweep(ctx context.Context, db *gorm.DB, poller *fediverse.Poller, tag string) error {
	actors, err := models.NewActors(db).All()
	if err != nil {
		return err
	}
	total := 0
	for i := range actors {
		if ctx.Err() != nil {
			return nil
		}
		total += poller.PollOutbox(ctx, actors[i].OutboxURL, actors[i].InstanceURL, tag)
	}
	fmt.Println("sweep complete:", total, "new activities from", len(actors), "actors")
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/fedilisten/fedilisten/fediverse"
	"gorm.io/gorm"
)

type AddActorCmd struct {
	Resource string `arg:"" required:"" help:"The acct: resource to resolve and store, e.g. acct:alice@example.com."`
}

func (a *AddActorCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	if err := configureDB(db); err != nil {
		return err
	}

	actor, err := fediverse.NewDirectory(ctx.Conf.Client(), db).Resolve(context.Background(), a.Resource)
	if err != nil {
		return err
	}
	fmt.Println("stored actor", actor.ActorID)
	fmt.Println("outbox:", actor.OutboxURL)
	return nil
}

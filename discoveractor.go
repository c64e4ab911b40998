package main

import (
	"context"
	"fmt"

	"github.com/go-json-experiment/json"
)

type DiscoverActorCmd struct {
	Resource string `arg:"" required:"" help:"The acct: resource to resolve, e.g. acct:alice@example.com."`
}

func (d *DiscoverActorCmd) Run(ctx *Context) error {
	client := ctx.Conf.Client()
	discovery, err := client.Discover(context.Background(), d.Resource)
	if err != nil {
		return err
	}
	if discovery.ActorURL == "" {
		return fmt.Errorf("no ActivityPub self link for %s", d.Resource)
	}
	profile, err := client.FetchProfile(context.Background(), discovery.ActorURL)
	if err != nil {
		return err
	}
	buf, err := json.MarshalOptions{}.Marshal(json.EncodeOptions{
		Indent: "\t",
	}, map[string]any{
		"subject":     discovery.Subject,
		"actorUrl":    discovery.ActorURL,
		"actorId":     profile.ID,
		"actorType":   profile.Type,
		"username":    profile.Username(),
		"inbox":       profile.Inbox,
		"outbox":      profile.Outbox,
		"sharedInbox": profile.SharedInbox,
	})
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

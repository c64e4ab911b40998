package main

import (
	"context"
	"fmt"
)

type CheckInstanceCmd struct {
	Instance string `arg:"" required:"" help:"Instance base URL, e.g. https://mastodon.social."`
}

func (c *CheckInstanceCmd) Run(ctx *Context) error {
	info, err := ctx.Conf.Client().FetchNodeInfo(context.Background(), c.Instance)
	if err != nil {
		return err
	}
	fmt.Printf("%s runs %s %s (nodeinfo %s)\n", c.Instance, info.Software.Name, info.Software.Version, info.Version)
	return nil
}

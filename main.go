package main

import (
	"github.com/alecthomas/kong"
	"gorm.io/gorm"
)

type Context struct {
	Debug bool
	Conf  *Config

	Dialector gorm.Dialector
	gorm.Config
}

var cli struct {
	Debug  bool   `help:"Enable debug mode."`
	DSN    string `help:"Database connection string." default:"fedilisten.db"`
	Config string `help:"Path to the YAML config file." type:"path" placeholder:"PATH"`

	Serve         ServeCmd         `cmd:"" help:"Serve the operational HTTP interface."`
	Poll          PollCmd          `cmd:"" help:"Poll actor outboxes for new activities."`
	DiscoverActor DiscoverActorCmd `cmd:"" name:"discover-actor" help:"Resolve an acct: handle via WebFinger and print the actor."`
	AddActor      AddActorCmd      `cmd:"" name:"add-actor" help:"Resolve an acct: handle and store the actor for polling."`
	CheckInstance CheckInstanceCmd `cmd:"" name:"check-instance" help:"Probe an instance's NodeInfo endpoint."`
	Automigrate   AutomigrateCmd   `cmd:"" help:"Create or update the database schema."`
}

func main() {
	ctx := kong.Parse(&cli)
	conf, err := ReadConf(cli.Config)
	ctx.FatalIfErrorf(err)
	err = ctx.Run(&Context{
		Debug:     cli.Debug,
		Conf:      conf,
		Dialector: newDialector(cli.DSN),
		Config: gorm.Config{
			TranslateError: true,
		},
	})
	ctx.FatalIfErrorf(err)
}

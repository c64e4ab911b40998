package main

import (
	"github.com/fedilisten/fedilisten/events"
	"github.com/fedilisten/fedilisten/models"
	"gorm.io/gorm"
)

type AutomigrateCmd struct {
}

func (AutomigrateCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	if err := configureDB(db); err != nil {
		return err
	}
	tables := append(models.AllTables(), &events.Outbox{})
	return db.AutoMigrate(tables...)
}

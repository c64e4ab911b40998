package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fedilisten/fedilisten/internal/httpx"
	"github.com/fedilisten/fedilisten/internal/to"
	"github.com/fedilisten/fedilisten/models"
	"gorm.io/gorm"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/feeds"
	"github.com/gorilla/schema"
)

type ServeCmd struct {
	Addr string `help:"address to listen" default:":8089"`
}

type env struct {
	db *gorm.DB
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	if err := configureDB(db); err != nil {
		return err
	}
	envFn := func(r *http.Request) *env {
		return &env{db: db}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpx.HandlerFunc(envFn, healthShow))
	r.Get("/api/activities", httpx.HandlerFunc(envFn, activitiesIndex))
	r.Get("/feeds/activities.rss", httpx.HandlerFunc(envFn, activitiesRSS))

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      r,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return svr.ListenAndServe()
}

func healthShow(e *env, w http.ResponseWriter, r *http.Request) error {
	return to.JSON(w, map[string]any{
		"status": "ok",
	})
}

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

type activitiesQuery struct {
	Limit   int    `schema:"limit"`
	ActorID string `schema:"actor_id"`
}

func activitiesIndex(e *env, w http.ResponseWriter, r *http.Request) error {
	var q activitiesQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 40
	}
	activities := models.NewActivities(e.db)
	var (
		rows []models.Activity
		err  error
	)
	if q.ActorID != "" {
		rows, err = activities.ByActor(q.ActorID, q.Limit)
	} else {
		rows, err = activities.Recent(q.Limit)
	}
	if err != nil {
		return err
	}
	return to.JSON(w, rows)
}

func activitiesRSS(e *env, w http.ResponseWriter, r *http.Request) error {
	rows, err := models.NewActivities(e.db).Recent(40)
	if err != nil {
		return err
	}
	feed := &feeds.Feed{
		Title:       "fedilisten: collected activities",
		Link:        &feeds.Link{Href: "https://" + r.Host + "/feeds/activities.rss"},
		Description: "activities collected from monitored fediverse actors",
		Created:     time.Now(),
	}
	for _, a := range rows {
		created := a.CreatedAt
		if a.PublishedAt != nil {
			created = *a.PublishedAt
		}
		link := a.ObjectID
		if link == "" {
			link = a.ActivityID
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          a.ActivityID,
			Title:       fmt.Sprintf("%s %s on %s", a.ActivityType, a.ObjectType, a.InstanceURL),
			Link:        &feeds.Link{Href: link},
			Description: a.Content,
			Author:      &feeds.Author{Name: a.ActorID},
			Created:     created,
		})
	}
	rss, err := feed.ToRss()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, err = io.WriteString(w, rss)
	return err
}

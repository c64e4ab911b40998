package fediverse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedilisten/fedilisten/models"
	"github.com/stretchr/testify/require"
)

// countingInstance is a fakeInstance that counts webfinger hits, so cache
// behaviour is observable.
func countingInstance(t *testing.T, selfLink bool) (*httptest.Server, *Client, *atomic.Int32) {
	t.Helper()
	var webfingers atomic.Int32
	mux := http.NewServeMux()
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/.well-known/webfinger", func(w http.ResponseWriter, r *http.Request) {
		webfingers.Add(1)
		links := `[]`
		if selfLink {
			links = `[{"rel": "self", "type": "application/activity+json", "href": "` + srv.URL + `/users/alice"}]`
		}
		w.Header().Set("Content-Type", "application/jrd+json")
		w.Write([]byte(`{"subject": "` + r.URL.Query().Get("resource") + `", "links": ` + links + `}`))
	})
	mux.HandleFunc("/users/alice", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write([]byte(`{
			"id": "` + srv.URL + `/users/alice",
			"type": "Person",
			"preferredUsername": "alice",
			"inbox": "` + srv.URL + `/users/alice/inbox",
			"outbox": "` + srv.URL + `/users/alice/outbox"
		}`))
	})

	client := NewClient("fedilisten-test/1.0", 5*time.Second)
	client.httpClient = srv.Client()
	return srv, client, &webfingers
}

func TestResolve(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	srv, client, _ := countingInstance(t, true)
	directory := NewDirectory(client, db)

	actor, err := directory.Resolve(context.Background(), "alice@"+host(srv))
	req.NoError(err)
	req.Equal(srv.URL+"/users/alice", actor.ActorID)
	req.Equal("alice", actor.Username)
	req.Equal(srv.URL, actor.InstanceURL)
	req.Equal("Person", actor.ActorType)
	req.Equal(srv.URL+"/users/alice/outbox", actor.OutboxURL)
	req.NotNil(actor.LastCheckedAt)

	stored, err := models.NewActors(db).FindByActorID(actor.ActorID)
	req.NoError(err)
	req.Equal(actor.Username, stored.Username)
}

func TestResolveServesFreshActorFromStorage(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	srv, client, webfingers := countingInstance(t, true)
	directory := NewDirectory(client, db)

	first, err := directory.Resolve(context.Background(), "alice@"+host(srv))
	req.NoError(err)
	second, err := directory.Resolve(context.Background(), "alice@"+host(srv))
	req.NoError(err)

	req.Equal(first.ID, second.ID)
	req.Equal(int32(1), webfingers.Load())
}

func TestResolveRefreshesStaleActor(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	srv, client, webfingers := countingInstance(t, true)
	directory := NewDirectory(client, db)

	stale := time.Now().Add(-2 * time.Hour)
	err := models.NewActors(db).Save(&models.Actor{
		ActorID:       srv.URL + "/users/alice",
		Username:      "alice",
		InstanceURL:   srv.URL,
		ActorType:     "Person",
		LastCheckedAt: &stale,
	})
	req.NoError(err)

	actor, err := directory.Resolve(context.Background(), "alice@"+host(srv))
	req.NoError(err)
	req.Equal(int32(1), webfingers.Load())
	req.Equal(srv.URL+"/users/alice/outbox", actor.OutboxURL)
	req.True(actor.LastCheckedAt.After(stale))
}

func TestResolveNoSelfLink(t *testing.T) {
	srv, client, _ := countingInstance(t, false)
	directory := NewDirectory(client, setupTestDB(t))

	_, err := directory.Resolve(context.Background(), "alice@"+host(srv))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveInvalidResource(t *testing.T) {
	_, client, _ := countingInstance(t, true)
	directory := NewDirectory(client, setupTestDB(t))

	_, err := directory.Resolve(context.Background(), "not-a-handle")
	require.ErrorIs(t, err, ErrInvalidResource)
}

// Package fediverse implements the ingestion side of ActivityPub: actor
// discovery, ActivityStreams parsing, per-instance rate limiting and the
// outbox polling loop. It only ever fetches public resources; it is not an
// ActivityPub server and neither delivers to inboxes nor signs requests.
package fediverse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/fedilisten/fedilisten/internal/webfinger"
)

// Error kinds surfaced by the client. Callers decide the retry policy;
// the client never retries internally.
var (
	// ErrInvalidResource marks a malformed acct: resource. No network
	// call has been made.
	ErrInvalidResource = errors.New("invalid resource")

	// ErrNotFound marks a resource the remote instance does not know.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable marks a transport failure or timeout
	// talking to the remote instance.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Client fetches remote ActivityPub resources. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	userAgent string
	timeout   time.Duration

	// httpClient overrides the default transport; nil outside of tests.
	httpClient *http.Client
}

// NewClient returns a new Client sending the given User-Agent, with the
// given per-request timeout.
func NewClient(userAgent string, timeout time.Duration) *Client {
	if userAgent == "" {
		userAgent = "fedilisten/1.0"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Discovery is the result of a WebFinger lookup.
type Discovery struct {
	Subject  string
	ActorURL string
}

// Discover resolves an acct:user@host resource to an actor URL via
// WebFinger. A response without a rel="self" link yields an empty
// ActorURL, which callers must treat as a failed discovery.
func (c *Client) Discover(ctx context.Context, resource string) (*Discovery, error) {
	acct, err := webfinger.Parse(resource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	var wf webfinger.Webfinger
	if err := c.get(ctx, acct.Webfinger(), &wf); err != nil {
		return nil, err
	}
	subject := wf.Subject
	if subject == "" {
		subject = acct.String()
	}
	return &Discovery{
		Subject:  subject,
		ActorURL: wf.Self(),
	}, nil
}

// Profile is a loosely typed actor profile document. The fields every
// caller needs are lifted out; everything else stays in Raw.
type Profile struct {
	ID          string
	Type        string
	Inbox       string
	Outbox      string
	SharedInbox string
	Raw         map[string]any
}

// Username returns the actor's preferredUsername, if the profile carries one.
func (p *Profile) Username() string {
	return stringFromAny(p.Raw["preferredUsername"])
}

// Data returns the scalar fields of the profile document, suitable for
// storage as a flat key/value map. Nested objects and arrays are dropped.
func (p *Profile) Data() map[string]any {
	data := make(map[string]any, len(p.Raw))
	for k, v := range p.Raw {
		switch v.(type) {
		case string, bool, float64:
			data[k] = v
		}
	}
	return data
}

// FetchProfile fetches the actor document at actorURL. Absent fields fall
// back to defaults: the ID to the requested URL, the type to "Person".
func (c *Client) FetchProfile(ctx context.Context, actorURL string) (*Profile, error) {
	obj, err := c.FetchObject(ctx, actorURL)
	if err != nil {
		return nil, err
	}
	id := stringFromAny(obj["id"])
	if id == "" {
		id = actorURL
	}
	typ := stringFromAny(obj["type"])
	if typ == "" {
		typ = "Person"
	}
	sharedInbox := stringFromAny(obj["sharedInbox"])
	if sharedInbox == "" {
		sharedInbox = stringFromAny(mapFromAny(obj["endpoints"])["sharedInbox"])
	}
	return &Profile{
		ID:          id,
		Type:        typ,
		Inbox:       stringFromAny(obj["inbox"]),
		Outbox:      stringFromAny(obj["outbox"]),
		SharedInbox: sharedInbox,
		Raw:         obj,
	}, nil
}

// FetchObject fetches the ActivityPub resource at the given URL into a
// schema-free map. It is used for outbox pages and any other collection
// the poller walks.
func (c *Client) FetchObject(ctx context.Context, uri string) (map[string]any, error) {
	var obj map[string]any
	if err := c.get(ctx, uri, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// NodeInfo is the subset of a NodeInfo 2.x document we care about.
type NodeInfo struct {
	Version  string `json:"version"`
	Software struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"software"`
}

// FetchNodeInfo probes an instance's /.well-known/nodeinfo index and
// dereferences the first schema link it advertises.
func (c *Client) FetchNodeInfo(ctx context.Context, instanceURL string) (*NodeInfo, error) {
	var index struct {
		Links []webfinger.Link `json:"links"`
	}
	if err := c.get(ctx, instanceURL+"/.well-known/nodeinfo", &index); err != nil {
		return nil, err
	}
	for _, link := range index.Links {
		if link.Href == "" {
			continue
		}
		var info NodeInfo
		if err := c.get(ctx, link.Href, &info); err != nil {
			return nil, err
		}
		return &info, nil
	}
	return nil, fmt.Errorf("%w: no nodeinfo schema advertised by %s", ErrNotFound, instanceURL)
}

func (c *Client) get(ctx context.Context, uri string, obj any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	rb := requests.URL(uri).
		Header("User-Agent", c.userAgent).
		Accept("application/activity+json, application/json").
		CheckStatus(http.StatusOK).
		ToJSON(obj)
	if c.httpClient != nil {
		rb = rb.Client(c.httpClient)
	}
	err := rb.Fetch(ctx)
	switch {
	case err == nil:
		return nil
	case requests.HasStatusErr(err, http.StatusNotFound, http.StatusGone):
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	default:
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, uri, err)
	}
}

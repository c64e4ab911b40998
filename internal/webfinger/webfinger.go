// Package webfinger implements the client side of the WebFinger discovery
// protocol: parsing acct: resources and modelling the JRD response.
package webfinger

import (
	"fmt"
	"net/url"
	"strings"
)

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type"`
	Href     string `json:"href"`
	Template string `json:"template"`
}

// Self returns the href of the rel="self" link, or the empty string if the
// response carries none. A response without a self link cannot be resolved
// to an actor.
func (wf *Webfinger) Self() string {
	for _, link := range wf.Links {
		if link.Rel == "self" && link.Href != "" {
			return link.Href
		}
	}
	return ""
}

type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL of the webfinger resource for this Acct on its
// home instance.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// Instance returns the base URL of the Acct's home instance.
func (a *Acct) Instance() string {
	return "https://" + a.Host
}

// Parse parses an account resource of the form acct:user@host, user@host or
// @user@host. Both the user and host parts must be present.
func Parse(resource string) (*Acct, error) {
	query := strings.TrimPrefix(resource, "acct:")
	query = strings.TrimPrefix(query, "@")

	// in case the handle has been URL encoded
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, fmt.Errorf("invalid acct %q: %w", resource, err)
	}

	parts := strings.Split(query, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid acct %q: expected user@host", resource)
	}
	return &Acct{
		User: parts[0],
		Host: parts[1],
	}, nil
}

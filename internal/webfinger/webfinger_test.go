package webfinger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcctParse(t *testing.T) {
	tc := []struct {
		in     string
		expect Acct
	}{
		{"acct:foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"@foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
	}
	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			req := require.New(t)
			got, err := Parse(tt.in)
			req.NoError(err)
			req.Equal(tt.expect, *got)
			req.Equal("acct:foo@bar.com", got.String())
		})
	}
}

func TestAcctParseInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"acct:",
		"foo",
		"acct:foo",
		"@bar.com",
		"foo@bar.com@baz.com",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
		})
	}
}

func TestAcctURLs(t *testing.T) {
	req := require.New(t)
	a := Acct{User: "alice", Host: "example.com"}
	req.Equal("https://example.com/.well-known/webfinger?resource=acct%3Aalice%40example.com", a.Webfinger())
	req.Equal("https://example.com", a.Instance())
}

func TestWebfingerSelf(t *testing.T) {
	req := require.New(t)
	wf := Webfinger{
		Subject: "acct:alice@example.com",
		Links: []Link{
			{Rel: "http://webfinger.net/rel/profile-page", Type: "text/html", Href: "https://example.com/@alice"},
			{Rel: "self", Type: "application/activity+json", Href: "https://example.com/users/alice"},
		},
	}
	req.Equal("https://example.com/users/alice", wf.Self())

	req.Equal("", (&Webfinger{Subject: "acct:bob@example.com"}).Self())
}

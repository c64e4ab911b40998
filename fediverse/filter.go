package fediverse

import (
	"strings"

	"github.com/fedilisten/fedilisten/internal/algorithms"
	"github.com/fedilisten/fedilisten/models"
	"golang.org/x/net/html"
)

// MatchesMonitor reports whether an activity matches any of the monitor's
// rules. The rule kinds are independent; any one matching is sufficient.
func MatchesMonitor(monitor *models.Monitor, activity *ParsedActivity) bool {
	if monitor == nil || activity == nil {
		return false
	}
	return matchesKeywords(monitor.Keywords, activity) ||
		matchesAccounts(monitor.Accounts, activity) ||
		matchesRegions(monitor.Regions)
}

// matchesKeywords checks each active rule in turn, first match wins.
// A rule's spam keywords veto that rule only, before its positive check.
// Content is matched both raw and with markup stripped, so keywords keep
// matching across instances that HTML-encode note content.
func matchesKeywords(rules []models.KeywordRule, activity *ParsedActivity) bool {
	raw := strings.ToLower(activity.Content)
	text := strings.ToLower(TextContent(activity.Content))
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		keywords := splitTerms(rule.Keywords)
		if len(keywords) == 0 {
			continue
		}
		if containsAny(raw, text, splitTerms(rule.SpamKeywords)) {
			continue
		}
		if containsAny(raw, text, keywords) {
			return true
		}
	}
	return false
}

// matchesAccounts checks whether the activity's actor URI contains, or
// path-ends-with, a followed account identifier. The rule's exclusion
// list vetoes that rule only.
func matchesAccounts(rules []models.AccountRule, activity *ParsedActivity) bool {
	if activity.ActorID == "" {
		return false
	}
	actor := strings.ToLower(activity.ActorID)
	for _, rule := range rules {
		follow := normalizeAccount(rule.Follow)
		if follow == "" {
			continue
		}
		if !strings.Contains(actor, follow) && !strings.HasSuffix(actor, "/"+follow) {
			continue
		}
		if excludedAccount(actor, rule.ExcludedAccounts) {
			continue
		}
		return true
	}
	return false
}

// matchesRegions: a rule without a bounding box matches every activity.
// Activities carry no geographic field, so a rule with a bounding box
// cannot match.
func matchesRegions(rules []models.RegionalRule) bool {
	for _, rule := range rules {
		if rule.MBR == "" {
			return true
		}
	}
	return false
}

// TextContent returns the text of an HTML fragment with markup removed.
// Plain text passes through unchanged.
func TextContent(content string) string {
	if !strings.ContainsRune(content, '<') {
		return content
	}
	var b strings.Builder
	tok := html.NewTokenizer(strings.NewReader(content))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.Write(tok.Text())
		}
	}
}

// splitTerms parses a comma-separated keyword list into lowercase terms.
func splitTerms(raw string) []string {
	return algorithms.Filter(
		algorithms.Map(strings.Split(raw, ","), func(s string) string {
			return strings.ToLower(strings.TrimSpace(s))
		}),
		func(s string) bool { return s != "" },
	)
}

func containsAny(raw, text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(raw, term) || strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// normalizeAccount strips acct: and @ prefixes and lowercases, so
// "@Alice@example.com", "acct:alice@example.com" and "alice@example.com"
// compare equal.
func normalizeAccount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "acct:")
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(s)
}

func excludedAccount(actor, excludedAccounts string) bool {
	for _, excluded := range algorithms.Map(strings.Split(excludedAccounts, ","), normalizeAccount) {
		if excluded != "" && strings.Contains(actor, excluded) {
			return true
		}
	}
	return false
}

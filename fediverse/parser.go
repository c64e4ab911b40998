package fediverse

import (
	"log"
	"time"

	"github.com/go-json-experiment/json"
)

// ParsedActivity is a normalised, transport-agnostic view of one
// ActivityStreams activity. It is produced per parse call and mapped into
// a persisted record by the poller; it is never stored itself.
type ParsedActivity struct {
	ActivityID   string
	ActivityType string
	ActorID      string
	ObjectID     string
	ObjectType   string
	Content      string
	PublishedAt  *time.Time
	InstanceURL  string
	RawData      map[string]any
}

// ExtractItems returns the raw items of a Collection or OrderedCollection
// page, preferring orderedItems over items. If the document carries an
// inline "first" page its items are used instead. A "first" that is a bare
// URL string yields no items; the caller must dereference it separately.
func ExtractItems(doc map[string]any) []any {
	if items := anyToSlice(doc["orderedItems"]); items != nil {
		return items
	}
	if items := anyToSlice(doc["items"]); items != nil {
		return items
	}
	if first := mapFromAny(doc["first"]); first != nil {
		if items := anyToSlice(first["orderedItems"]); items != nil {
			return items
		}
		if items := anyToSlice(first["items"]); items != nil {
			return items
		}
	}
	return nil
}

// NextPageURL returns the URL of the next collection page, or the empty
// string when pagination ends. A "first" that is a bare URL string is not
// followed.
func NextPageURL(doc map[string]any) string {
	if next := stringFromAny(doc["next"]); next != "" {
		return next
	}
	if _, ok := doc["first"].(string); ok {
		return ""
	}
	if first := mapFromAny(doc["first"]); first != nil {
		return stringFromAny(first["next"])
	}
	return ""
}

// ParseActivityItem normalises one raw collection item. It returns nil if
// the item is not a JSON object or carries no type.
func ParseActivityItem(item any, instanceURL string) *ParsedActivity {
	obj := mapFromAny(item)
	if obj == nil {
		return nil
	}
	typ := stringFromAny(obj["type"])
	if typ == "" {
		return nil
	}

	var (
		objectID    string
		objectType  string
		content     string
		publishedAt *time.Time
	)
	if object := mapFromAny(obj["object"]); object != nil {
		objectID = stringFromAny(object["id"])
		objectType = stringFromAny(object["type"])
		content = stringFromAny(object["content"])
		publishedAt = timestampFromAny(object["published"])
	}
	if objectType == "" {
		objectType = "Object"
	}
	if publishedAt == nil {
		publishedAt = timestampFromAny(obj["published"])
	}

	return &ParsedActivity{
		ActivityID:   stringFromAny(obj["id"]),
		ActivityType: typ,
		ActorID:      idFromAny(obj["actor"]),
		ObjectID:     objectID,
		ObjectType:   objectType,
		Content:      content,
		PublishedAt:  publishedAt,
		InstanceURL:  instanceURL,
		RawData:      flattenItem(obj),
	}
}

// ParseOutbox extracts and normalises every item of an outbox page.
// A malformed item is logged and skipped; it never aborts the batch.
func ParseOutbox(doc map[string]any, instanceURL string) []*ParsedActivity {
	items := ExtractItems(doc)
	parsed := make([]*ParsedActivity, 0, len(items))
	for _, item := range items {
		p := ParseActivityItem(item, instanceURL)
		if p == nil {
			log.Printf("fediverse: skipping malformed activity item from %s", instanceURL)
			continue
		}
		parsed = append(parsed, p)
	}
	return parsed
}

// flattenItem flattens the top-level fields of a raw item: scalars keep
// their native type, arrays and objects are stored as their JSON string
// form so the item stays replayable without deep-typing every extension.
func flattenItem(obj map[string]any) map[string]any {
	flat := make(map[string]any, len(obj))
	for k, v := range obj {
		switch v.(type) {
		case string, bool, float64:
			flat[k] = v
		case nil:
			// drop
		default:
			if b, err := json.Marshal(v); err == nil {
				flat[k] = string(b)
			}
		}
	}
	return flat
}

// idFromAny resolves an actor or object reference: a string is the id
// itself, an object contributes its id field.
func idFromAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return stringFromAny(mapFromAny(v)["id"])
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func mapFromAny(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func anyToSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// timestampFromAny parses an RFC 3339 instant; anything else yields nil,
// never an error.
func timestampFromAny(v any) *time.Time {
	s := stringFromAny(v)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

package filter

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Query keys understood by the codec. AdvKey carries the base64url-encoded
// card list; the other three are plain values.
const (
	sortKey   = "sort"
	catsKey   = "cats"
	searchKey = "search"
	advKey    = "adv"
)

// DefaultBasePath is the route filters apply to when the input path is
// missing or empty.
const DefaultBasePath = "/projects"

// SchemaVersion is the current StoredFilterConditions schema version.
const SchemaVersion = 1

var allowedSorts = map[string]bool{
	"newest":                true,
	"oldest":                true,
	"a-z":                   true,
	"z-a":                   true,
	"most-supported":        true,
	"top-transparent":       true,
	"top-community-trusted": true,
}

// FilterCondition is a single predicate inside a filter card. Conditions
// missing any of ID, FieldType, FieldKey or Operator are invalid and get
// dropped during normalization.
type FilterCondition struct {
	ID        string `json:"id"`
	Connector string `json:"connector,omitempty"`
	FieldType string `json:"fieldType"`
	FieldKey  string `json:"fieldKey"`
	Operator  string `json:"operator"`
	Value     any    `json:"value,omitempty"`
}

func (c FilterCondition) valid() bool {
	return c.ID != "" && c.FieldType != "" && c.FieldKey != "" && c.Operator != ""
}

// FilterCard groups conditions. A card with zero valid conditions is dropped.
type FilterCard struct {
	Conditions []FilterCondition `json:"conditions"`
}

// Metadata carries bookkeeping timestamps. Invalid or missing dates
// normalize to the current time.
type Metadata struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoredFilterConditions is the canonical representation of a saved
// project-list filter. An empty Sort or Search string means "not set".
type StoredFilterConditions struct {
	Version         int          `json:"version"`
	BasePath        string       `json:"basePath"`
	Sort            string       `json:"sort,omitempty"`
	Categories      []string     `json:"categories"`
	Search          string       `json:"search,omitempty"`
	AdvancedFilters []FilterCard `json:"advancedFilters"`
	Metadata        Metadata     `json:"metadata"`
}

// Default returns all-default conditions rooted at DefaultBasePath.
func Default() StoredFilterConditions {
	now := time.Now().UTC()
	return StoredFilterConditions{
		Version:         SchemaVersion,
		BasePath:        DefaultBasePath,
		Categories:      []string{},
		AdvancedFilters: []FilterCard{},
		Metadata:        Metadata{CreatedAt: now, UpdatedAt: now},
	}
}

// ParsePath converts a UI path with query string into canonical
// StoredFilterConditions. It never fails: malformed query strings, unknown
// sort values and undecodable advanced-filter payloads all degrade to
// defaults rather than erroring, so a bad filter can never break a page.
func ParsePath(path string) StoredFilterConditions {
	c := Default()
	if path == "" {
		return c
	}
	base, query, _ := strings.Cut(path, "?")
	if base != "" {
		c.BasePath = base
	}
	vals, err := url.ParseQuery(query)
	if err != nil {
		return c
	}
	if s := vals.Get(sortKey); allowedSorts[s] {
		c.Sort = s
	}
	c.Categories = normalizeCategories(strings.Split(vals.Get(catsKey), ","))
	c.Search = strings.TrimSpace(vals.Get(searchKey))
	c.AdvancedFilters = decodeCards(vals.Get(advKey))
	return c
}

// Normalize returns a canonical copy of c: schema version pinned, base path
// defaulted, unknown sorts discarded, categories deduped in order, search
// trimmed, degenerate advanced-filter cards dropped and zero metadata
// timestamps replaced with now.
func Normalize(c StoredFilterConditions) StoredFilterConditions {
	out := c
	out.Version = SchemaVersion
	if out.BasePath == "" {
		out.BasePath = DefaultBasePath
	}
	if !allowedSorts[out.Sort] {
		out.Sort = ""
	}
	out.Categories = normalizeCategories(c.Categories)
	out.Search = strings.TrimSpace(c.Search)
	out.AdvancedFilters = normalizeCards(c.AdvancedFilters)
	now := time.Now().UTC()
	if out.Metadata.CreatedAt.IsZero() {
		out.Metadata.CreatedAt = now
	}
	if out.Metadata.UpdatedAt.IsZero() {
		out.Metadata.UpdatedAt = now
	}
	return out
}

// TargetPath serializes the conditions back into a canonical path. Query
// parameters always appear in the order sort, cats, search, adv, with empty
// values omitted, so equal conditions always produce byte-equal paths.
func (c StoredFilterConditions) TargetPath() string {
	base := c.BasePath
	if base == "" {
		base = DefaultBasePath
	}
	var parts []string
	if allowedSorts[c.Sort] {
		parts = append(parts, sortKey+"="+url.QueryEscape(c.Sort))
	}
	if cats := normalizeCategories(c.Categories); len(cats) > 0 {
		parts = append(parts, catsKey+"="+url.QueryEscape(strings.Join(cats, ",")))
	}
	if s := strings.TrimSpace(c.Search); s != "" {
		parts = append(parts, searchKey+"="+url.QueryEscape(s))
	}
	if enc := encodeCards(c.AdvancedFilters); enc != "" {
		parts = append(parts, advKey+"="+enc)
	}
	if len(parts) == 0 {
		return base
	}
	return base + "?" + strings.Join(parts, "&")
}

// normalizeCategories trims, dedupes in order and splits embedded commas:
// the comma is the wire separator for cats, so a canonical category can
// never contain one.
func normalizeCategories(raw []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(raw))
	for _, entry := range raw {
		for _, c := range strings.Split(entry, ",") {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func normalizeCards(cards []FilterCard) []FilterCard {
	out := []FilterCard{}
	for _, card := range cards {
		var kept []FilterCondition
		for _, cond := range card.Conditions {
			if cond.valid() {
				kept = append(kept, cond)
			}
		}
		if len(kept) > 0 {
			out = append(out, FilterCard{Conditions: kept})
		}
	}
	return out
}

func encodeCards(cards []FilterCard) string {
	cards = normalizeCards(cards)
	if len(cards) == 0 {
		return ""
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCards(encoded string) []FilterCard {
	if encoded == "" {
		return []FilterCard{}
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		// tolerate padded input from older clients
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return []FilterCard{}
		}
	}
	var cards []FilterCard
	if err := json.Unmarshal(raw, &cards); err != nil {
		return []FilterCard{}
	}
	return normalizeCards(cards)
}

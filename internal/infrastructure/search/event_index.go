package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/eventhub/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// EventIndex keeps a searchable copy of events in Elasticsearch.
// Postgres stays the source of truth; search only returns ids.
type EventIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewEventIndex(es *elasticsearch.Client, index string) *EventIndex {
	return &EventIndex{ES: es, Index: index}
}

func (x *EventIndex) enabled() bool {
	return x != nil && x.ES != nil && x.Index != ""
}

var eventMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"name":        map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"location":    map[string]any{"type": "text"},
			"date":        map[string]any{"type": "date"},
			"created_by":  map[string]any{"type": "keyword"},
			"created_at":  map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (x *EventIndex) EnsureIndex(ctx context.Context) error {
	if !x.enabled() {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{x.Index}}.Do(c, x.ES)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	b, err := json.Marshal(eventMapping)
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: x.Index, Body: strings.NewReader(string(b))}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	// 400 here is a concurrent create losing the race
	if res.IsError() && res.StatusCode != 400 {
		return fmt.Errorf("create index %s: %s", x.Index, res.Status())
	}
	return nil
}

// IndexEvent upserts ev into the index.
func (x *EventIndex) IndexEvent(ctx context.Context, ev *entity.Event) error {
	if !x.enabled() {
		return nil
	}
	b, err := json.Marshal(eventDocument(ev))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: ev.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index event %s: %s", ev.ID, res.Status())
	}
	return nil
}

// SearchEvents runs a multi_match over name, description and location and
// returns matching event ids by relevance.
func (x *EventIndex) SearchEvents(ctx context.Context, q string, size int) ([]string, error) {
	if !x.enabled() {
		return []string{}, nil
	}
	b, err := json.Marshal(searchQuery(q, size))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search events: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.ID)
	}
	return out, nil
}

func eventDocument(ev *entity.Event) map[string]any {
	return map[string]any{
		"id":          ev.ID,
		"name":        ev.Name,
		"description": ev.Description,
		"location":    ev.Location,
		"date":        ev.Date.UTC().Format(time.RFC3339),
		"created_by":  ev.CreatedBy,
		"created_at":  ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func searchQuery(q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"name^2", "description", "location"},
			},
		},
		"size":    size,
		"_source": false,
	}
}

// Package directory mirrors staff profiles into Elasticsearch for admin search.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	platformElasticsearch "dishrent_backend/internal/platform/elasticsearch"
	"dishrent_backend/internal/user"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Indexer implements user.ProfileIndexer on Elasticsearch.
type Indexer struct {
	client *platformElasticsearch.ESClientWrapper
	index  string
	logger *zap.Logger
}

// NewIndexer returns a no-op indexer when Elasticsearch is not configured.
func NewIndexer(client *platformElasticsearch.ESClientWrapper, logger *zap.Logger) user.ProfileIndexer {
	if client == nil {
		return user.NoopIndexer{}
	}
	return &Indexer{client: client, index: platformElasticsearch.ProfilesIndexName, logger: logger.Named("directory")}
}

func (ix *Indexer) Enabled() bool { return true }

func (ix *Indexer) Index(ctx context.Context, p user.FormattedProfile) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", p.ID, err)
	}
	res, err := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, ix.client.Client)
	if err != nil {
		return fmt.Errorf("index profile %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index profile %s: status %s", p.ID, res.Status())
	}
	return nil
}

func (ix *Indexer) Remove(ctx context.Context, id string) error {
	res, err := esapi.DeleteRequest{Index: ix.index, DocumentID: id}.Do(ctx, ix.client.Client)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete profile %s: status %s", id, res.Status())
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string                 `json:"_id"`
			Status int                    `json:"status"`
			Error  map[string]interface{} `json:"error,omitempty"`
		} `json:"index"`
	} `json:"items"`
}

// BulkIndex sends one bulk request and returns how many documents were accepted.
func (ix *Indexer) BulkIndex(ctx context.Context, profiles []user.FormattedProfile) (int, error) {
	if len(profiles) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, p := range profiles {
		doc, err := json.Marshal(p)
		if err != nil {
			return 0, fmt.Errorf("marshal profile %s: %w", p.ID, err)
		}
		fmt.Fprintf(&buf, `{"index":{"_index":%q,"_id":%q}}`+"\n", ix.index, p.ID)
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := esapi.BulkRequest{Body: &buf}.Do(ctx, ix.client.Client)
	if err != nil {
		return 0, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk request: status %s", res.Status())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	indexed, failed := 0, 0
	for _, item := range br.Items {
		if item.Index.Error != nil {
			failed++
			ix.logger.Error("Failed to index document in bulk batch",
				zap.String("user_id", item.Index.ID),
				zap.Int("status", item.Index.Status),
				zap.Any("error", item.Index.Error),
			)
			continue
		}
		indexed++
	}
	if failed > 0 {
		return indexed, fmt.Errorf("%d profiles failed to index", failed)
	}
	return indexed, nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source user.FormattedProfile `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a prefix-friendly match over name, email, phone and outlet.
func (ix *Indexer) Search(ctx context.Context, q string, from, size int) ([]user.FormattedProfile, int64, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query": q,
				"type":  "bool_prefix",
				"fields": []string{
					"full_name", "full_name._2gram", "full_name._3gram",
					"email", "email._2gram", "email._3gram",
					"phone", "outlet_name",
				},
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"full_name.keyword": "asc"}},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}.Do(ctx, ix.client.Client)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search: status %s", res.Status())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]user.FormattedProfile, len(sr.Hits.Hits))
	for i, h := range sr.Hits.Hits {
		out[i] = h.Source
	}
	return out, sr.Hits.Total.Value, nil
}

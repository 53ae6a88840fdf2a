package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// InspectRow is one badger entry rendered for an operator.
type InspectRow struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace"`
	Timestamp string `json:"timestamp,omitempty"`
	EntityID  string `json:"entity_id,omitempty"`
	Size      int    `json:"size"`
}

type StatsProvider func() map[string]any

// StartDebugServer exposes raw storage over a local JSON endpoint, keyed by
// prefix (msg:, user:, conv:). Development tooling only, never exposed
// publicly.
func StartDebugServer(db *badger.DB, port int, statsProvider StatsProvider) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		rows := make([]InspectRow, 0)
		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					rows = append(rows, mapRow(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		body := map[string]any{"prefix": prefix, "items": rows}
		if statsProvider != nil {
			body["stats"] = statsProvider()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("127.0.0.1:%d", port), mux)
	}()
}

// mapRow decodes the key layouts used by the repositories. History keys carry
// a padded nanosecond timestamp in the middle segment.
func mapRow(key string, val []byte) InspectRow {
	row := InspectRow{Key: key, Namespace: "default", Size: len(val)}

	parts := strings.Split(key, ":")
	if len(parts) > 0 {
		row.Namespace = parts[0]
	}
	if len(parts) == 4 && parts[0] == "msg" {
		var tsNano int64
		if _, err := fmt.Sscanf(parts[2], "%d", &tsNano); err == nil {
			row.Timestamp = time.Unix(0, tsNano).UTC().Format("15:04:05")
		}
		row.EntityID = parts[3]
		if len(row.EntityID) > 8 {
			row.EntityID = row.EntityID[:8]
		}
	}
	return row
}

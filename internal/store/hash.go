package store

import (
	"context"
	"fmt"

	"github.com/arlobridge/crawlcore/internal/domain"
)

// DomainKey returns the coordination-store hash key for a domain record.
func DomainKey(d string) string { return "domain:" + d }

// VisitedKey returns the coordination-store hash key for a visited
// record, keyed by the first 16 hex chars of SHA-256(url).
func VisitedKey(urlSHA16 string) string { return "visited:" + urlSHA16 }

// GetDomain reads a domain record. ok is false if the hash does not exist.
func (s *Store) GetDomain(ctx context.Context, d string) (domain.DomainRecord, bool, error) {
	key := DomainKey(d)

	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.DomainRecord{}, false, fmt.Errorf("store: get domain %s: %w", d, err)
	}
	if len(vals) == 0 {
		return domain.DomainRecord{}, false, nil
	}

	rec := domain.DomainRecord{Domain: d}
	rec.FilePath = vals["file_path"]
	rec.FrontierOffset = parseInt64(vals["frontier_offset"])
	rec.FrontierSize = parseInt64(vals["frontier_size"])
	rec.NextFetchTime = parseInt64(vals["next_fetch_time"])
	rec.RobotsTxt = vals["robots_txt"]
	rec.RobotsExpires = parseInt64(vals["robots_expires"])
	rec.IsExcluded = vals["is_excluded"] == "1"
	rec.IsSeeded = vals["is_seeded"] == "1"

	return rec, true, nil
}

// SetDomainFields writes a partial update of a domain record's fields.
// Only the fields present in the map are touched.
func (s *Store) SetDomainFields(ctx context.Context, d string, fields map[string]any) error {
	key := DomainKey(d)
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("store: set domain %s fields: %w", d, err)
	}
	return nil
}

// SetDomainFieldIfAbsent sets a single hash field only if it does not
// already exist (used to initialize frontier_offset to 0 exactly once).
func (s *Store) SetDomainFieldIfAbsent(ctx context.Context, d, field string, value any) error {
	key := DomainKey(d)
	if err := s.client.HSetNX(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("store: setnx domain %s field %s: %w", d, field, err)
	}
	return nil
}

// GetVisited reads a visited record. ok is false if it does not exist.
func (s *Store) GetVisited(ctx context.Context, urlSHA16 string) (domain.VisitedRecord, bool, error) {
	key := VisitedKey(urlSHA16)

	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.VisitedRecord{}, false, fmt.Errorf("store: get visited %s: %w", urlSHA16, err)
	}
	if len(vals) == 0 {
		return domain.VisitedRecord{}, false, nil
	}

	rec := domain.VisitedRecord{
		URL:          vals["url"],
		URLSHA256:    vals["url_sha256"],
		Domain:       vals["domain"],
		StatusCode:   int(parseInt64(vals["status_code"])),
		ContentPath:  vals["content_path"],
		ContentHash:  vals["content_hash"],
		RedirectedTo: vals["redirected_to"],
		Error:        vals["error"],
	}

	return rec, true, nil
}

// PutVisited writes (overwrites) a visited record. Visited records are
// write-last-wins keyed by URL hash, per spec §3.2.
func (s *Store) PutVisited(ctx context.Context, rec domain.VisitedRecord) error {
	key := VisitedKey(rec.URLSHA256[:16])

	fields := map[string]any{
		"url":           rec.URL,
		"url_sha256":    rec.URLSHA256,
		"domain":        rec.Domain,
		"status_code":   rec.StatusCode,
		"fetched_at":    rec.FetchedAt.Unix(),
		"content_path":  rec.ContentPath,
		"content_hash":  rec.ContentHash,
		"redirected_to": rec.RedirectedTo,
		"error":         rec.Error,
	}

	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("store: put visited %s: %w", key, err)
	}
	return nil
}

// ResetAll deletes all domain:* and visited:* keys, the domain-ready
// and handoff queues, the bloom filter, and the schema version — used
// by the explicit "new crawl" reset (spec §3.3).
func (s *Store) ResetAll(ctx context.Context) error {
	for _, pattern := range []string{"domain:*", "visited:*"} {
		if err := s.deleteMatching(ctx, pattern); err != nil {
			return err
		}
	}

	keys := []string{DomainReadyQueueKey, FetchHandoffKey, BloomKey, "schema_version"}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("store: reset: %w", err)
	}
	return nil
}

func (s *Store) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return fmt.Errorf("store: scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if delErr := s.client.Del(ctx, keys...).Err(); delErr != nil {
				return fmt.Errorf("store: delete %s: %w", pattern, delErr)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func parseInt64(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

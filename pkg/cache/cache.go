// Package cache provides the read-through cache used for slow-changing course
// structure. Entries carry an absolute expiry and are evicted lazily on read or
// explicitly by pattern.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Store is the cache contract shared by the memory and Redis backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl. Entries always expire: a ttl <= 0 is rejected
	// with ErrInvalidTTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// ClearPattern evicts every key matching a glob with at most one '*'.
	ClearPattern(ctx context.Context, pattern string) error
	ClearAll(ctx context.Context) error
}

const (
	NamespaceCourse   = "course:*"
	NamespaceProgress = "progress:*"
)

func ActiveCourseKey() string {
	return "course:active"
}

func CourseStructureKey(courseID uint) string {
	return fmt.Sprintf("course:structure:%d", courseID)
}

var (
	// ErrInvalidPattern is returned for patterns with more than one wildcard.
	ErrInvalidPattern = errors.New("cache pattern may contain at most one '*'")
	ErrInvalidTTL     = errors.New("cache ttl must be positive")
)

// compilePattern turns "course:*" into (?s)^course:.*$; the wildcard also
// spans newlines.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if strings.Count(pattern, "*") > 1 {
		return nil, ErrInvalidPattern
	}
	parts := strings.SplitN(pattern, "*", 2)
	expr := regexp.QuoteMeta(parts[0])
	if len(parts) == 2 {
		expr += ".*" + regexp.QuoteMeta(parts[1])
	}
	return regexp.Compile("(?s)^" + expr + "$")
}

// GetJSON decodes a cached value into dest. A value that no longer decodes is
// reported as a miss.
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}

// InvalidateProgress clears the namespaces that depend on learner progress.
// Every progress or homework write must call it after a successful commit.
func InvalidateProgress(ctx context.Context, s Store) error {
	if err := s.ClearPattern(ctx, NamespaceCourse); err != nil {
		return err
	}
	return s.ClearPattern(ctx, NamespaceProgress)
}

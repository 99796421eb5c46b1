// Package servicecenter finds repair centers near the user for a diagnosed
// appliance.
package servicecenter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const UnavailableText = "서비스 센터 정보를 불러올 수 없습니다."

// Searcher answers a free-text location query near the coordinates.
type Searcher interface {
	SearchServiceCenters(ctx context.Context, query string, lat, lng float64) (string, error)
}

// Finder wraps a Searcher with the query format, a short-lived answer
// cache and the fallback text.
type Finder struct {
	searcher Searcher
	cache    *expirable.LRU[string, string]
	log      *zap.Logger
}

func NewFinder(searcher Searcher, cacheSize int, cacheTTL time.Duration, log *zap.Logger) *Finder {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Finder{
		searcher: searcher,
		cache:    expirable.NewLRU[string, string](cacheSize, nil, cacheTTL),
		log:      log,
	}
}

// Query builds the lookup sentence, with the brand first when known.
func Query(appliance, brand string) string {
	subject := strings.TrimSpace(appliance)
	if b := strings.TrimSpace(brand); b != "" {
		subject = b + " " + subject
	}
	return subject + " 서비스센터를 현재 위치 주변에서 찾아주세요."
}

// Find never fails: lookup errors and empty answers become UnavailableText.
func (f *Finder) Find(ctx context.Context, appliance, brand string, lat, lng float64) string {
	query := Query(appliance, brand)
	key := cacheKey(query, lat, lng)
	if text, ok := f.cache.Get(key); ok {
		return text
	}

	text, err := f.searcher.SearchServiceCenters(ctx, query, lat, lng)
	if err != nil {
		f.log.Warn("service center lookup failed", zap.String("query", query), zap.Error(err))
		return UnavailableText
	}
	if strings.TrimSpace(text) == "" {
		return UnavailableText
	}
	f.cache.Add(key, text)
	return text
}

// cacheKey rounds coordinates to roughly a hundred meters.
func cacheKey(query string, lat, lng float64) string {
	return fmt.Sprintf("%s|%.3f|%.3f", query, lat, lng)
}

package kana

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	clipime "github.com/Paranoid-AF/clipime"
	"github.com/Paranoid-AF/clipime/backend"
)

const (
	cacheTTL      = 10 * time.Minute
	cacheCapacity = 1024
)

type cacheKey struct {
	leftContext string
	composing   string
}

// Engine converts composing text into candidates: dictionary matches,
// then the hiragana reading, its katakana form, and the raw input.
type Engine struct {
	dict  atomic.Pointer[Dictionary]
	cache *ttlcache.Cache[cacheKey, []clipime.Candidate]
}

var _ backend.Engine = (*Engine)(nil)

// New creates an Engine using dict. A nil dict means no dictionary.
func New(dict *Dictionary) *Engine {
	c := ttlcache.New[cacheKey, []clipime.Candidate](
		ttlcache.WithTTL[cacheKey, []clipime.Candidate](cacheTTL),
		ttlcache.WithCapacity[cacheKey, []clipime.Candidate](cacheCapacity),
		ttlcache.WithDisableTouchOnHit[cacheKey, []clipime.Candidate](),
	)
	// No expiration loop: Get skips expired items and the capacity bound
	// evicts them.
	e := &Engine{cache: c}
	e.dict.Store(dict)
	return e
}

// Open creates an Engine over the dictionary configured in cfg. A
// dictionary that cannot be loaded is logged and replaced by the default
// one.
func Open(cfg *clipime.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	path := clipime.DictionaryPath(cfg)
	dict, err := LoadDictionary(path)
	if err != nil {
		logger.Warn("failed to load dictionary, using defaults", "path", path, "error", err)
		dict = DefaultDictionary()
	}
	logger.Debug("dictionary loaded", "path", path, "entries", dict.Len())
	return New(dict)
}

// Close drops cached results.
func (e *Engine) Close() {
	e.cache.DeleteAll()
}

// Candidates implements backend.Engine. A trailing end-of-input sentinel
// on composing is ignored. The left context only distinguishes cache
// entries.
func (e *Engine) Candidates(composing, leftContext string) []clipime.Candidate {
	key := cacheKey{leftContext: leftContext, composing: composing}
	if item := e.cache.Get(key); item != nil {
		return item.Value()
	}

	raw := strings.TrimSuffix(composing, string(backend.Sentinel))
	if raw == "" {
		return nil
	}
	reading := ToHiragana(raw)

	var out []clipime.Candidate
	seen := make(map[string]bool)
	add := func(c clipime.Candidate) {
		if c.Text == "" || seen[c.Text] {
			return
		}
		seen[c.Text] = true
		c.Rank = len(out) + 1
		out = append(out, c)
	}

	for _, c := range e.dict.Load().Lookup(reading, raw) {
		add(c)
	}
	add(clipime.Candidate{Text: reading, Reading: reading})
	add(clipime.Candidate{Text: ToKatakana(reading), Reading: reading})
	add(clipime.Candidate{Text: raw, Reading: reading})

	e.cache.Set(key, out, ttlcache.DefaultTTL)
	return out
}

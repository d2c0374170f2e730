// Package analytics decides when to publish, based on a time-boxed cache of
// channel viewership patterns. Timing is advice, never a gate: every failure
// path resolves to conservative fallback times instead of an error.
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/store"
	"github.com/randysalars/dreamweaving-publisher/internal/util"
	"github.com/randysalars/dreamweaving-publisher/internal/youtube"
)

const (
	// DefaultCacheTTL is how long a snapshot stays valid
	DefaultCacheTTL = 7 * 24 * time.Hour

	// Fallback publish times when no analytics are available
	FallbackLongHour  = 15
	FallbackShortHour = 7

	// Long-form uploads precede peak traffic by this many hours so the
	// recommendation system has time to index.
	longFormLeadHours = 3

	// Morning commute window (local hours, inclusive) for shorts
	morningWindowStart = 6
	morningWindowEnd   = 10

	hourlyWindowDays = 28
	dailyWindowDays  = 90
)

// FallbackWeekday is used when the daily series is empty or unavailable
var FallbackWeekday = time.Wednesday

// Source provides viewership time series. *youtube.Client satisfies it.
type Source interface {
	GetHourlyViews(ctx context.Context, days int) (map[int]int64, error)
	GetDailyViews(ctx context.Context, days int) ([]youtube.DailyViews, error)
}

// Times is the publish-timing advice derived from analytics
type Times struct {
	LongHour  int // local hour for long-form uploads
	ShortHour int // local hour for shorts
	Weekday   time.Weekday
	FetchedAt time.Time
	FromCache bool
	Fallback  bool
}

// Config holds optimizer configuration
type Config struct {
	CacheTTL time.Duration
	Location *time.Location
	Now      func() time.Time // test seam
}

// Optimizer answers "what hour should I publish?", memoized through the
// analytics_cache table.
type Optimizer struct {
	store  *store.Store
	source Source
	ttl    time.Duration
	loc    *time.Location
	now    func() time.Time
}

// New creates an Optimizer
func New(st *store.Store, source Source, cfg *Config) *Optimizer {
	if cfg == nil {
		cfg = &Config{}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Optimizer{store: st, source: source, ttl: ttl, loc: loc, now: now}
}

// OptimalTimes returns publish-timing advice. A snapshot younger than the
// TTL is returned without any network call; otherwise a fresh window is
// fetched and cached. Fetch or computation failures resolve to fallback
// times, never an error.
func (o *Optimizer) OptimalTimes(ctx context.Context) *Times {
	snap, err := o.store.LatestSnapshot()
	if err != nil {
		util.WarnLog("Analytics cache read failed, using fallback times: %v", err)
		return o.fallback()
	}

	if snap != nil && o.now().Sub(snap.FetchedAt) < o.ttl {
		util.DebugLog("Analytics cache hit (age %v)", o.now().Sub(snap.FetchedAt).Round(time.Hour))
		return &Times{
			LongHour:  snap.BestLongHour,
			ShortHour: snap.BestShortHour,
			Weekday:   snap.BestWeekday,
			FetchedAt: snap.FetchedAt,
			FromCache: true,
		}
	}

	times, err := o.refresh(ctx)
	if err != nil {
		util.WarnLog("Analytics refresh failed, using fallback times: %v", err)
		return o.fallback()
	}
	return times
}

// Refresh forces a fetch regardless of cache age. Used by the CLI.
func (o *Optimizer) Refresh(ctx context.Context) *Times {
	times, err := o.refresh(ctx)
	if err != nil {
		util.WarnLog("Analytics refresh failed, using fallback times: %v", err)
		return o.fallback()
	}
	return times
}

func (o *Optimizer) refresh(ctx context.Context) (*Times, error) {
	hourly, err := o.source.GetHourlyViews(ctx, hourlyWindowDays)
	if err != nil {
		return nil, err
	}
	daily, err := o.source.GetDailyViews(ctx, dailyWindowDays)
	if err != nil {
		return nil, err
	}

	longHour := o.bestLongHour(hourly)
	shortHour := o.bestShortHour(hourly)
	weekday := bestWeekday(daily)

	fetchedAt := o.now()

	hourlyJSON, _ := json.Marshal(hourly)
	dailyJSON, _ := json.Marshal(daily)

	snap := &store.AnalyticsSnapshot{
		FetchedAt:     fetchedAt,
		BestLongHour:  longHour,
		BestShortHour: shortHour,
		BestWeekday:   weekday,
		HourlyJSON:    string(hourlyJSON),
		DailyJSON:     string(dailyJSON),
	}
	if err := o.store.InsertSnapshot(snap); err != nil {
		// Advice is still usable this run even if caching failed
		util.WarnLog("Failed to cache analytics snapshot: %v", err)
	}

	util.InfoLog("Analytics: best long-form hour %02d:00, shorts hour %02d:00, best day %s",
		longHour, shortHour, weekday)

	return &Times{
		LongHour:  longHour,
		ShortHour: shortHour,
		Weekday:   weekday,
		FetchedAt: fetchedAt,
	}, nil
}

func (o *Optimizer) fallback() *Times {
	return &Times{
		LongHour:  FallbackLongHour,
		ShortHour: FallbackShortHour,
		Weekday:   FallbackWeekday,
		FetchedAt: o.now(),
		Fallback:  true,
	}
}

// localHour converts an API hour-of-day (UTC) to the deployment's local hour
func (o *Optimizer) localHour(utcHour int) int {
	_, offset := o.now().In(o.loc).Zone()
	return ((utcHour+offset/3600)%24 + 24) % 24
}

// bestLongHour picks the peak-traffic hour and shifts it three hours earlier
// so uploads precede the peak rather than coincide with it.
func (o *Optimizer) bestLongHour(hourly map[int]int64) int {
	peak, ok := peakHour(hourly, func(int) bool { return true }, o.localHour)
	if !ok {
		return FallbackLongHour
	}
	return ((peak-longFormLeadHours)%24 + 24) % 24
}

// bestShortHour picks the local peak within the morning commute window,
// shifted one hour earlier.
func (o *Optimizer) bestShortHour(hourly map[int]int64) int {
	peak, ok := peakHour(hourly, func(local int) bool {
		return local >= morningWindowStart && local <= morningWindowEnd
	}, o.localHour)
	if !ok {
		return FallbackShortHour
	}
	return ((peak-1)%24 + 24) % 24
}

// peakHour returns the local hour with maximum views among hours accepted by
// the filter. Ties resolve to the earliest local hour, so the result is
// deterministic for equal view counts.
func peakHour(hourly map[int]int64, accept func(localHour int) bool, toLocal func(int) int) (int, bool) {
	byLocal := make(map[int]int64)
	for utcHour, views := range hourly {
		local := toLocal(utcHour)
		if accept(local) {
			byLocal[local] += views
		}
	}
	if len(byLocal) == 0 {
		return 0, false
	}

	best := -1
	var bestViews int64 = -1
	for h := 0; h < 24; h++ {
		if views, ok := byLocal[h]; ok && views > bestViews {
			best = h
			bestViews = views
		}
	}
	return best, best >= 0
}

// bestWeekday returns the weekday with the highest summed views
func bestWeekday(daily []youtube.DailyViews) time.Weekday {
	if len(daily) == 0 {
		return FallbackWeekday
	}

	var sums [7]int64
	for _, d := range daily {
		sums[d.Date.Weekday()] += d.Views
	}

	best := FallbackWeekday
	var bestViews int64 = -1
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if sums[wd] > bestViews {
			best = wd
			bestViews = sums[wd]
		}
	}
	return best
}

// ShouldPublishNow reports whether the current local hour is within one hour
// of the optimal hour for the given upload kind. Advisory only.
func (o *Optimizer) ShouldPublishNow(ctx context.Context, kind store.UploadKind) bool {
	times := o.OptimalTimes(ctx)

	target := times.LongHour
	if kind == store.KindShort {
		target = times.ShortHour
	}

	nowHour := o.now().In(o.loc).Hour()
	diff := (nowHour - target + 24) % 24
	return diff <= 1 || diff == 23
}

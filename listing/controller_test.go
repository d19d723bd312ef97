// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/orglisting/location"
	"github.com/jcodagnone/orglisting/metrics"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type locationCall struct {
	point       spatial.Point
	rangeMetres int
	limit       int
}

type fakeFetcher struct {
	mu         sync.Mutex
	nameCalls  []string
	locCalls   []locationCall
	byName     func(name string) ([]LocationRecord, error)
	byLocation func(p spatial.Point) ([]LocationRecord, error)
}

func (f *fakeFetcher) ByName(_ context.Context, name string) ([]LocationRecord, error) {
	f.mu.Lock()
	f.nameCalls = append(f.nameCalls, name)
	f.mu.Unlock()

	if f.byName == nil {
		return nil, nil
	}

	return f.byName(name)
}

func (f *fakeFetcher) ByLocation(_ context.Context, p spatial.Point, rangeMetres, limit int) ([]LocationRecord, error) {
	f.mu.Lock()
	f.locCalls = append(f.locCalls, locationCall{p, rangeMetres, limit})
	f.mu.Unlock()

	if f.byLocation == nil {
		return nil, nil
	}

	return f.byLocation(p)
}

type fakeResolver struct {
	locations     map[string]*location.Location
	err           error
	remembered    *location.Location
	rememberedErr error
	wait          func(postcode string)
}

func (r *fakeResolver) Resolve(_ context.Context, postcode string) (*location.Location, error) {
	if r.wait != nil {
		r.wait(postcode)
	}

	if r.err != nil {
		return nil, r.err
	}

	return r.locations[postcode], nil
}

func (r *fakeResolver) Remembered(_ context.Context) (*location.Location, error) {
	return r.remembered, r.rememberedErr
}

type fakeNavigator struct {
	mu        sync.Mutex
	loading   int
	loaded    int
	redirects []string
}

func (n *fakeNavigator) Loading() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading++
}

func (n *fakeNavigator) Loaded() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loaded++
}

func (n *fakeNavigator) Redirect(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, route)
}

type fixture struct {
	ctrl     *Controller
	fetcher  *fakeFetcher
	resolver *fakeResolver
	nav      *fakeNavigator
	logs     *test.Hook
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		fetcher: &fakeFetcher{},
		resolver: &fakeResolver{locations: map[string]*location.Location{
			"M1 1AE": {Postcode: "M1 1AE", Point: spatial.Point{Lat: 53.48, Lng: -2.24}},
			"SLOW":   {Postcode: "SLOW", Point: spatial.Point{Lat: 1}},
			"FAST":   {Postcode: "FAST", Point: spatial.Point{Lat: 2}},
		}},
		nav:  &fakeNavigator{},
		logs: hook,
	}

	f.ctrl = New(Collaborators{
		Fetcher:    f.fetcher,
		Resolver:   f.resolver,
		Calculator: latCalculator{},
		Navigator:  f.nav,
		Logger:     logger,
	}, opts)

	return f
}

// orgs builds n single-location organisations, "<prefix>-00" nearest.
func orgs(prefix string, n int) []LocationRecord {
	records := make([]LocationRecord, n)
	for i := range records {
		key := fmt.Sprintf("%s-%02d", prefix, i)
		records[i] = record(key, key, float64(i+1))
	}

	return records
}

func returning(records []LocationRecord) func(spatial.Point) ([]LocationRecord, error) {
	return func(spatial.Point) ([]LocationRecord, error) {
		return append([]LocationRecord(nil), records...), nil
	}
}

func viewNames(v View) []string {
	out := make([]string, len(v.Organisations))
	for i, g := range v.Organisations {
		out[i] = g.Name
	}

	return out
}

func TestNewDefaults(t *testing.T) {
	f := newFixture(t, Options{})

	v := f.ctrl.View()
	assert.Equal(t, DefaultPageSize, v.PageSize)
	assert.Equal(t, DefaultPageSize, v.PageIndex)
	assert.Equal(t, spatial.DefaultRange, v.Range)
	assert.Equal(t, SortNone, v.CurrentSort)
	assert.False(t, v.HasOrgs)
	assert.False(t, v.HasMorePages)
	assert.True(t, v.HasPrevPages)
	assert.Empty(t, v.Organisations)
}

func TestInitialize(t *testing.T) {
	f := newFixture(t, Options{})
	f.resolver.remembered = f.resolver.locations["M1 1AE"]
	f.fetcher.byLocation = returning([]LocationRecord{
		record("far", "Far", 9),
		record("near", "Near", 1),
	})

	require.NoError(t, f.ctrl.Initialize(t.Context()))

	v := f.ctrl.View()
	assert.Equal(t, "M1 1AE", v.Postcode)
	assert.Equal(t, []string{"Near", "Far"}, viewNames(v))
	assert.True(t, v.IsSortedNearest)
	assert.False(t, v.IsSortedAToZ)

	require.Len(t, f.fetcher.locCalls, 1)
	assert.Equal(t, locationCall{
		point:       spatial.Point{Lat: 53.48, Lng: -2.24},
		rangeMetres: spatial.DefaultRange,
		limit:       FetchLimit,
	}, f.fetcher.locCalls[0])

	assert.Equal(t, 1, f.nav.loading)
	assert.Equal(t, 1, f.nav.loaded)
	assert.Empty(t, f.nav.redirects)
}

func TestInitializeFailureRedirects(t *testing.T) {
	f := newFixture(t, Options{})
	f.resolver.rememberedErr = location.ErrNothingRemembered

	err := f.ctrl.Initialize(t.Context())
	require.ErrorIs(t, err, location.ErrNothingRemembered)

	assert.Equal(t, []string{ErrorRoute}, f.nav.redirects)
	assert.Zero(t, f.nav.loading)
	assert.Empty(t, f.fetcher.locCalls)
}

func TestLoadMorePagination(t *testing.T) {
	f := newFixture(t, Options{PageSize: 8})
	f.fetcher.byLocation = returning(orgs("org", 20))

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))

	v := f.ctrl.View()
	assert.Len(t, v.Organisations, 8)
	assert.Equal(t, 20, v.Total)
	assert.True(t, v.HasMorePages)

	f.ctrl.LoadMore()
	v = f.ctrl.View()
	assert.Len(t, v.Organisations, 16)
	assert.True(t, v.HasMorePages)

	f.ctrl.LoadMore()
	v = f.ctrl.View()
	assert.Len(t, v.Organisations, 20)
	assert.Equal(t, 24, v.PageIndex)
	assert.False(t, v.HasMorePages)
	assert.Equal(t, "org-00", v.Organisations[0].Name)
	assert.Equal(t, "org-19", v.Organisations[19].Name)
}

func TestPagingWindow(t *testing.T) {
	f := newFixture(t, Options{PageSize: 8})
	f.fetcher.byLocation = returning(orgs("org", 20))

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))

	f.ctrl.PageForward()
	f.ctrl.PageNext()

	tests := []struct {
		pageIndex int
		shown     int
		prev      bool
		more      bool
	}{
		{16, 16, true, true},
		{8, 8, true, true},
		{0, 0, false, true},
		{-8, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.pageIndex), func(t *testing.T) {
			f.ctrl.PageBackward()

			v := f.ctrl.View()
			assert.Equal(t, tt.pageIndex, v.PageIndex)
			assert.Len(t, v.Organisations, tt.shown)
			assert.Equal(t, tt.prev, v.HasPrevPages)
			assert.Equal(t, tt.more, v.HasMorePages)
		})
	}
}

func TestLocationSearchRewindsPaging(t *testing.T) {
	f := newFixture(t, Options{PageSize: 8})
	f.fetcher.byLocation = returning(orgs("org", 20))

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))
	f.ctrl.LoadMore()
	f.ctrl.SortAlphabetical()

	require.NoError(t, f.ctrl.LoadByLocation(t.Context(), *f.resolver.locations["M1 1AE"]))

	v := f.ctrl.View()
	assert.Equal(t, 8, v.PageIndex)
	assert.Len(t, v.Organisations, 8)
	assert.Equal(t, SortNearest, v.CurrentSort)
}

func TestSorting(t *testing.T) {
	f := newFixture(t, Options{})
	f.fetcher.byLocation = returning([]LocationRecord{
		record("b", "beta", 1),
		record("z", "Zeta", 3),
		record("a", "Alpha", 2),
	})

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))
	assert.Equal(t, []string{"beta", "Alpha", "Zeta"}, viewNames(f.ctrl.View()))

	f.ctrl.SortAlphabetical()
	first := f.ctrl.View()
	assert.Equal(t, []string{"Alpha", "Zeta", "beta"}, viewNames(first))
	assert.True(t, first.IsSortedAToZ)
	assert.False(t, first.IsSortedNearest)

	f.ctrl.SortAlphabetical()
	if diff := cmp.Diff(first, f.ctrl.View()); diff != "" {
		t.Errorf("sorting twice changed the view (-first +second):\n%s", diff)
	}

	f.ctrl.SortByNearest()
	v := f.ctrl.View()
	assert.Equal(t, []string{"beta", "Alpha", "Zeta"}, viewNames(v))
	assert.True(t, v.IsSortedNearest)
}

func TestSearchByLocationUnknownPostcode(t *testing.T) {
	f := newFixture(t, Options{})
	f.fetcher.byLocation = returning(orgs("org", 3))

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))
	before := f.ctrl.View()

	err := f.ctrl.SearchByLocation(t.Context(), "ZZ9 9ZZ")
	require.ErrorIs(t, err, ErrPostcodeNotFound)

	v := f.ctrl.View()
	assert.True(t, v.PostcodeRetrievalIssue)
	assert.Equal(t, "ZZ9 9ZZ", v.Postcode)
	assert.Empty(t, cmp.Diff(before.Organisations, v.Organisations))
	assert.Equal(t, before.Total, v.Total)
	assert.Len(t, f.fetcher.locCalls, 1)
	assert.Empty(t, f.nav.redirects)

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))
	assert.False(t, f.ctrl.View().PostcodeRetrievalIssue)
}

func TestSearchByLocationResolverError(t *testing.T) {
	f := newFixture(t, Options{})
	f.resolver.err = &location.ResolveError{Type: location.ErrorTypeTimeout, Message: "timed out"}

	err := f.ctrl.SearchByLocation(t.Context(), "M1 1AE")
	require.Error(t, err)
	assert.True(t, location.IsTimeoutError(err))

	assert.True(t, f.ctrl.View().PostcodeRetrievalIssue)
	assert.Empty(t, f.nav.redirects)
	assert.Empty(t, f.fetcher.locCalls)
}

func TestFetchFailureRedirectsOnce(t *testing.T) {
	f := newFixture(t, Options{})
	boom := errors.New("connection refused")
	f.fetcher.byLocation = func(spatial.Point) ([]LocationRecord, error) {
		return nil, boom
	}

	err := f.ctrl.SearchByLocation(t.Context(), "M1 1AE")
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{ErrorRoute}, f.nav.redirects)
	assert.Equal(t, 1, f.nav.loading)
	assert.Zero(t, f.nav.loaded, "the loading indicator is left to the redirect")

	var failures int
	for _, e := range f.logs.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestFilter(t *testing.T) {
	f := newFixture(t, Options{
		Filter: func(g *OrganisationGroup) bool { return g.DonationURL != "" },
	})

	records := orgs("org", 4)
	records[1].DonationURL = "https://example.org/1"
	records[3].DonationURL = "https://example.org/3"
	f.fetcher.byLocation = returning(records)

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))
	assert.Equal(t, []string{"org-01", "org-03"}, viewNames(f.ctrl.View()))
}

func TestSearchByName(t *testing.T) {
	f := newFixture(t, Options{
		Filter: func(*OrganisationGroup) bool { return false },
	})
	f.fetcher.byName = func(string) ([]LocationRecord, error) {
		return []LocationRecord{
			record("k2", "Soup Kitchen North", 5),
			record("k1", "Soup Kitchen", 7),
			record("k2", "Soup Kitchen North", 2),
		}, nil
	}

	f.ctrl.SortAlphabetical()
	require.NoError(t, f.ctrl.SearchByName(t.Context(), "  Soup KITCHEN ", "M1 1AE"))

	assert.Equal(t, []string{"soup kitchen"}, f.fetcher.nameCalls)
	assert.Empty(t, f.fetcher.locCalls)

	v := f.ctrl.View()
	assert.Equal(t, "  Soup KITCHEN ", v.SearchQuery)
	assert.Equal(t, "M1 1AE", v.Postcode)
	assert.Equal(t, []string{"Soup Kitchen", "Soup Kitchen North"}, viewNames(v), "the filter only applies to location searches")
	assert.True(t, v.IsSortedAToZ)
	assert.InDelta(t, 2000, v.Organisations[1].DistanceInMetres, 1e-9)

	assert.Equal(t, 1, f.nav.loading)
	assert.Equal(t, 1, f.nav.loaded)
}

func TestSearchByNameEmptyQuery(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.ctrl.SearchByName(t.Context(), "   ", "M1 1AE")
	require.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, f.fetcher.nameCalls)
	assert.Empty(t, f.nav.redirects)
}

func TestSearchByNameFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*fixture)
		postcode string
		loading  int
	}{
		{
			name:     "unknown postcode",
			setup:    func(*fixture) {},
			postcode: "ZZ9 9ZZ",
		},
		{
			name: "resolver error",
			setup: func(f *fixture) {
				f.resolver.err = &location.ResolveError{Type: location.ErrorTypeNetworkError}
			},
			postcode: "M1 1AE",
		},
		{
			name: "fetch error",
			setup: func(f *fixture) {
				f.fetcher.byName = func(string) ([]LocationRecord, error) {
					return nil, errors.New("status 502")
				}
			},
			postcode: "M1 1AE",
			loading:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			tt.setup(f)

			require.Error(t, f.ctrl.SearchByName(t.Context(), "soup", tt.postcode))
			assert.Equal(t, []string{ErrorRoute}, f.nav.redirects)
			assert.Equal(t, tt.loading, f.nav.loading)
			assert.Zero(t, f.nav.loaded)
		})
	}
}

func TestSetRange(t *testing.T) {
	f := newFixture(t, Options{})

	require.Error(t, f.ctrl.SetRange(3000))
	assert.Equal(t, spatial.DefaultRange, f.ctrl.View().Range)

	require.NoError(t, f.ctrl.SetRange(2000))
	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))

	require.Len(t, f.fetcher.locCalls, 1)
	assert.Equal(t, 2000, f.fetcher.locCalls[0].rangeMetres)
	assert.Equal(t, 2000, f.ctrl.View().Range)
	assert.Equal(t, spatial.Ranges, f.ctrl.Ranges())
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, Options{})
	f.fetcher.byLocation = returning(orgs("org", 10))

	var views []View

	unsubscribe := f.ctrl.Subscribe(func(v View) { views = append(views, v) })

	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))
	require.NotEmpty(t, views)

	last := views[len(views)-1]
	assert.Equal(t, 10, last.Total)
	assert.Len(t, last.Organisations, DefaultPageSize)

	n := len(views)
	f.ctrl.LoadMore()
	require.Len(t, views, n+1)
	assert.Len(t, views[n].Organisations, 10)

	unsubscribe()
	f.ctrl.SortAlphabetical()
	assert.Len(t, views, n+1)
}

func TestSupersededSearchIsDiscarded(t *testing.T) {
	f := newFixture(t, Options{})

	started := make(chan struct{})
	release := make(chan struct{})

	f.fetcher.byLocation = func(p spatial.Point) ([]LocationRecord, error) {
		if p.Lat == 1 {
			close(started)
			<-release

			return orgs("slow", 3), nil
		}

		return orgs("fast", 5), nil
	}

	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.SearchByLocation(context.Background(), "SLOW")
	}()

	<-started
	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "FAST"))
	close(release)
	require.NoError(t, <-done)

	v := f.ctrl.View()
	assert.Equal(t, "FAST", v.Postcode)
	assert.Equal(t, 5, v.Total)
	assert.Equal(t, "fast-00", v.Organisations[0].Name)

	f.nav.mu.Lock()
	defer f.nav.mu.Unlock()
	assert.Equal(t, 2, f.nav.loading)
	assert.Equal(t, 2, f.nav.loaded)
	assert.Empty(t, f.nav.redirects)
}

func TestSupersededFetchFailureDoesNotRedirect(t *testing.T) {
	f := newFixture(t, Options{})

	started := make(chan struct{})
	release := make(chan struct{})

	f.fetcher.byLocation = func(p spatial.Point) ([]LocationRecord, error) {
		if p.Lat == 1 {
			close(started)
			<-release

			return nil, errors.New("timeout")
		}

		return orgs("fast", 2), nil
	}

	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.SearchByLocation(context.Background(), "SLOW")
	}()

	<-started
	require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "FAST"))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 2, f.ctrl.View().Total)

	f.nav.mu.Lock()
	defer f.nav.mu.Unlock()
	assert.Empty(t, f.nav.redirects)
	assert.Equal(t, f.nav.loading, f.nav.loaded)
}

func TestResolveStage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limit", location.ClassifyHTTPError(http.StatusTooManyRequests), metrics.StageRateLimit},
		{"quota", &location.ResolveError{Type: location.ErrorTypeQuotaExceeded}, metrics.StageQuota},
		{"timeout", fmt.Errorf("resolving: %w", context.DeadlineExceeded), metrics.StageTimeout},
		{"other", errors.New("connection reset"), metrics.StageResolve},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveStage(tt.err))
		})
	}
}

func TestSearchByLocationLogsResolveStage(t *testing.T) {
	f := newFixture(t, Options{})
	f.resolver.err = location.ClassifyHTTPError(http.StatusTooManyRequests)

	require.Error(t, f.ctrl.SearchByLocation(t.Context(), "M1 1AE"))

	entry := f.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, metrics.StageRateLimit, entry.Data["stage"])
	assert.True(t, f.ctrl.View().PostcodeRetrievalIssue)
}

// pending blocks the resolution of postcode until release is closed.
func pending(postcode string) (started, release chan struct{}, wait func(string)) {
	started = make(chan struct{})
	release = make(chan struct{})

	return started, release, func(pc string) {
		if pc == postcode {
			close(started)
			<-release
		}
	}
}

func TestPendingSearchLeavesViewUntouched(t *testing.T) {
	tests := []struct {
		name   string
		search func(c *Controller) error
	}{
		{"by name", func(c *Controller) error {
			return c.SearchByName(context.Background(), "slow query", "SLOW")
		}},
		{"by location", func(c *Controller) error {
			return c.SearchByLocation(context.Background(), "SLOW")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.fetcher.byName = func(string) ([]LocationRecord, error) { return orgs("name", 2), nil }
			f.fetcher.byLocation = returning(orgs("fast", 3))

			started, release, wait := pending("SLOW")
			f.resolver.wait = wait

			done := make(chan error, 1)
			go func() { done <- tt.search(f.ctrl) }()

			<-started
			v := f.ctrl.View()
			assert.Empty(t, v.Postcode)
			assert.Empty(t, v.SearchQuery)

			require.NoError(t, f.ctrl.SearchByLocation(t.Context(), "FAST"))
			close(release)
			require.NoError(t, <-done)

			v = f.ctrl.View()
			assert.Equal(t, "FAST", v.Postcode)
			assert.Empty(t, v.SearchQuery)
			assert.Equal(t, "fast-00", v.Organisations[0].Name)
		})
	}
}

// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jcodagnone/orglisting/location"
	"github.com/jcodagnone/orglisting/metrics"
	"github.com/jcodagnone/orglisting/spatial"
	"github.com/jcodagnone/orglisting/utils/textutils"
	"github.com/sirupsen/logrus"
)

// Common errors returned by the controller.
var (
	ErrEmptyQuery       = errors.New("empty search query")
	ErrPostcodeNotFound = errors.New("postcode not found")
)

// Options configures a Controller.
type Options struct {
	// PageSize is the number of organisations added per page. Defaults to 8.
	PageSize int

	// Range is the initial search radius in metres. Defaults to 10000.
	Range int

	// Unit used to describe distances. Defaults to kilometres.
	Unit spatial.Unit

	// Filter, when set, selects the organisations kept after a location search.
	Filter Filter
}

// Collaborators are the services the controller talks to.
type Collaborators struct {
	Fetcher    Fetcher
	Resolver   Resolver
	Calculator DistanceCalculator
	Navigator  Navigator
	Logger     logrus.FieldLogger
}

type state struct {
	postcode               string
	rangeMetres            int
	searchQuery            string
	organisations          []*OrganisationGroup
	window                 []*OrganisationGroup
	sort                   SortMode
	pageIndex              int
	postcodeRetrievalIssue bool
}

// Controller is the organisation listing view-model. It is safe for
// concurrent use; searches run without holding the state lock and only the
// latest search is allowed to replace the result set.
type Controller struct {
	fetcher  Fetcher
	resolver Resolver
	calc     DistanceCalculator
	nav      Navigator
	log      logrus.FieldLogger

	filter   Filter
	pageSize int
	unit     spatial.Unit

	mu          sync.Mutex
	state       state
	generation  uint64
	subscribers map[int]func(View)
	nextSub     int
}

// New creates a controller. Call Initialize to load the remembered postcode.
func New(c Collaborators, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	if opts.Range <= 0 {
		opts.Range = spatial.DefaultRange
	}

	if opts.Unit == "" {
		opts.Unit = spatial.Kilometres
	}

	if c.Calculator == nil {
		c.Calculator = spatial.Calculator{}
	}

	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}

	return &Controller{
		fetcher:  c.Fetcher,
		resolver: c.Resolver,
		calc:     c.Calculator,
		nav:      c.Navigator,
		log:      c.Logger,
		filter:   opts.Filter,
		pageSize: opts.PageSize,
		unit:     opts.Unit,
		state: state{
			rangeMetres: opts.Range,
			pageIndex:   opts.PageSize,
		},
		subscribers: make(map[int]func(View)),
	}
}

/////////////////////////////////////////
/// Searches

// begin starts a search and returns its generation.
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++

	return c.generation
}

// current reports whether gen is still the latest search. Callers hold mu.
func (c *Controller) current(gen uint64) bool {
	if gen != c.generation {
		metrics.Discarded()
		c.log.WithField("generation", gen).Debug("Discarding superseded search")

		return false
	}

	return true
}

// fail logs err and sends the page to the error route.
func (c *Controller) fail(stage string, err error) {
	metrics.Failure(stage)
	c.log.WithError(err).WithField("stage", stage).Error("Listing failed")
	c.nav.Redirect(ErrorRoute)
}

// Initialize loads organisations around the remembered postcode. Failing to
// get it redirects to the error route.
func (c *Controller) Initialize(ctx context.Context) error {
	gen := c.begin()

	loc, err := c.resolver.Remembered(ctx)
	if err != nil {
		c.mu.Lock()
		stale := !c.current(gen)
		c.mu.Unlock()

		if stale {
			return nil
		}

		c.fail(metrics.StageRemembered, err)

		return fmt.Errorf("getting remembered postcode: %w", err)
	}

	return c.loadByLocation(ctx, gen, *loc, loc.Postcode)
}

// resolveStage names the failure stage of a resolver error.
func resolveStage(err error) string {
	switch {
	case location.IsRateLimitError(err):
		return metrics.StageRateLimit
	case location.IsQuotaExceededError(err):
		return metrics.StageQuota
	case location.IsTimeoutError(err):
		return metrics.StageTimeout
	default:
		return metrics.StageResolve
	}
}

// SearchByName lists every organisation whose name matches query, whatever
// its distance. postcode is only used to describe distances.
func (c *Controller) SearchByName(ctx context.Context, query, postcode string) error {
	name := textutils.LowerQuery(query)
	if name == "" {
		return ErrEmptyQuery
	}

	gen := c.begin()

	metrics.Search(metrics.KindName)

	loc, err := c.resolver.Resolve(ctx, postcode)
	if err != nil {
		return c.failSearch(gen, resolveStage(err), err)
	}

	if loc == nil {
		return c.failSearch(gen, metrics.StageResolve, fmt.Errorf("%w: %s", ErrPostcodeNotFound, postcode))
	}

	c.nav.Loading()

	start := time.Now()
	records, err := c.fetcher.ByName(ctx, name)
	metrics.ObserveFetch(metrics.KindName, time.Since(start))

	if err != nil {
		return c.failFetch(gen, err)
	}

	groups := GroupByOrg(records, loc.Point, c.calc, c.unit)

	applied := c.apply(gen, func(s *state) {
		// keep the active ordering, the sort indicator must match the window
		sortGroups(groups, s.sort)
		s.organisations = groups
		s.searchQuery = query
		s.postcode = postcode
	})

	c.nav.Loaded()

	if applied {
		c.log.WithFields(logrus.Fields{
			"query":         name,
			"records":       len(records),
			"organisations": len(groups),
		}).Info("Searched by name")
	}

	return nil
}

// SearchByLocation lists the organisations around postcode. An unknown
// postcode, or a failure to resolve it, only raises the retrieval issue flag.
func (c *Controller) SearchByLocation(ctx context.Context, postcode string) error {
	gen := c.begin()

	metrics.Search(metrics.KindLocation)

	loc, err := c.resolver.Resolve(ctx, postcode)
	if err != nil || loc == nil {
		entry := c.log.WithField("postcode", postcode)

		if err == nil {
			err = fmt.Errorf("%w: %s", ErrPostcodeNotFound, postcode)
		} else {
			stage := resolveStage(err)
			metrics.Failure(stage)
			entry = entry.WithField("stage", stage)
		}

		entry.WithError(err).Warn("Postcode retrieval issue")

		if !c.apply(gen, func(s *state) {
			s.postcode = postcode
			s.postcodeRetrievalIssue = true
		}) {
			return nil
		}

		return err
	}

	if !c.apply(gen, func(s *state) { s.postcodeRetrievalIssue = false }) {
		return nil
	}

	return c.loadByLocation(ctx, gen, *loc, postcode)
}

// LoadByLocation lists the organisations within the configured range of loc,
// nearest first, and rewinds to the first page.
func (c *Controller) LoadByLocation(ctx context.Context, loc location.Location) error {
	return c.loadByLocation(ctx, c.begin(), loc, loc.Postcode)
}

// loadByLocation stores postcode along with the results, once they are in.
func (c *Controller) loadByLocation(ctx context.Context, gen uint64, loc location.Location, postcode string) error {
	c.mu.Lock()
	rangeMetres := c.state.rangeMetres
	c.mu.Unlock()

	c.nav.Loading()

	start := time.Now()
	records, err := c.fetcher.ByLocation(ctx, loc.Point, rangeMetres, FetchLimit)
	metrics.ObserveFetch(metrics.KindLocation, time.Since(start))

	if err != nil {
		return c.failFetch(gen, err)
	}

	groups := GroupByOrg(records, loc.Point, c.calc, c.unit)
	if c.filter != nil {
		groups = slices.DeleteFunc(groups, func(g *OrganisationGroup) bool {
			return !c.filter(g)
		})
	}

	applied := c.apply(gen, func(s *state) {
		sortGroups(groups, SortNearest)
		s.organisations = groups
		s.postcode = postcode
		s.sort = SortNearest
		s.pageIndex = c.pageSize
	})

	c.nav.Loaded()

	if applied {
		c.log.WithFields(logrus.Fields{
			"postcode":      postcode,
			"range":         rangeMetres,
			"records":       len(records),
			"organisations": len(groups),
		}).Info("Searched by location")
	}

	return nil
}

// failSearch handles a fatal failure of a search that has not signalled
// loading yet.
func (c *Controller) failSearch(gen uint64, stage string, err error) error {
	c.mu.Lock()
	stale := !c.current(gen)
	c.mu.Unlock()

	if stale {
		c.log.WithError(err).Debug("Superseded search failed")

		return nil
	}

	c.fail(stage, err)

	return err
}

// failFetch handles a failed fetch. The loading indicator is left on: the
// redirect replaces the page. A superseded fetch releases it instead.
func (c *Controller) failFetch(gen uint64, err error) error {
	c.mu.Lock()
	stale := !c.current(gen)
	c.mu.Unlock()

	if stale {
		c.log.WithError(err).Debug("Superseded fetch failed")
		c.nav.Loaded()

		return nil
	}

	c.fail(metrics.StageFetch, err)

	return fmt.Errorf("fetching locations: %w", err)
}

/////////////////////////////////////////
/// Sorting and paging

// SortAlphabetical orders organisations by name, byte-wise and case sensitive.
func (c *Controller) SortAlphabetical() {
	c.mutate(func(s *state) {
		sortGroups(s.organisations, SortAlphabetical)
		s.sort = SortAlphabetical
	})
}

// SortByNearest orders organisations by the distance of their nearest location.
func (c *Controller) SortByNearest() {
	c.mutate(func(s *state) {
		sortGroups(s.organisations, SortNearest)
		s.sort = SortNearest
	})
}

// PageBackward shrinks the window by one page. The cursor is not floored:
// callers use HasPrevPages to offer the action.
func (c *Controller) PageBackward() {
	c.mutate(func(s *state) {
		s.pageIndex -= c.pageSize
	})
}

// PageForward grows the window by one page.
func (c *Controller) PageForward() {
	c.mutate(func(s *state) {
		s.pageIndex += c.pageSize
	})
}

// PageNext is PageForward.
func (c *Controller) PageNext() { c.PageForward() }

// LoadMore is PageForward.
func (c *Controller) LoadMore() { c.PageForward() }

// SetRange selects the radius used by the next location search.
func (c *Controller) SetRange(metres int) error {
	if _, err := spatial.FindRange(metres); err != nil {
		return err
	}

	c.mutate(func(s *state) {
		s.rangeMetres = metres
	})

	return nil
}

// Ranges lists the selectable search radii.
func (c *Controller) Ranges() []spatial.Range {
	return slices.Clone(spatial.Ranges)
}

/////////////////////////////////////////
/// State and notifications

// Subscribe registers fn to receive a View after every change. The returned
// function unregisters it.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.subscribers, id)
	}
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

// mutate applies fn, recomputes the window and notifies subscribers.
func (c *Controller) mutate(fn func(*state)) {
	c.update(func(s *state) bool {
		fn(s)

		return true
	})
}

// apply is mutate for search results: it does nothing and returns false
// when gen was superseded.
func (c *Controller) apply(gen uint64, fn func(*state)) bool {
	return c.update(func(s *state) bool {
		if !c.current(gen) {
			return false
		}

		fn(s)

		return true
	})
}

func (c *Controller) update(fn func(*state) bool) bool {
	c.mu.Lock()

	if !fn(&c.state) {
		c.mu.Unlock()

		return false
	}

	c.state.window = window(c.state.organisations, c.state.pageIndex)
	metrics.Organisations(len(c.state.organisations))
	v := c.snapshot()

	subs := make([]func(View), 0, len(c.subscribers))
	for _, sub := range c.subscribers {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(v)
	}

	return true
}

// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the organisation listing to the search widget as a
// JSON API with a server-sent event stream of changes.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/orglisting/listing"
	"github.com/jcodagnone/orglisting/metrics"
	"github.com/sirupsen/logrus"
)

// Response is the listing as the widget renders it.
type Response struct {
	listing.View

	Loading  bool   `json:"loading"`
	Redirect string `json:"redirect,omitempty"`
}

type Server struct {
	ctrl *listing.Controller
	nav  *Navigator
	log  logrus.FieldLogger
	hub  *hub

	unsubscribe func()
}

// New serves ctrl, which must have been created with nav as its navigator.
func New(ctrl *listing.Controller, nav *Navigator, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		ctrl: ctrl,
		nav:  nav,
		log:  log,
		hub:  newHub(),
	}

	s.unsubscribe = ctrl.Subscribe(func(v listing.View) {
		s.hub.publish(s.responseFor(v))
	})

	nav.mu.Lock()
	nav.changed = func() { s.hub.publish(s.response()) }
	nav.mu.Unlock()

	return s
}

// Close stops following the listing.
func (s *Server) Close() {
	s.unsubscribe()

	s.nav.mu.Lock()
	s.nav.changed = nil
	s.nav.mu.Unlock()
}

// Router registers the API routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	api := r.Group("/api")
	api.GET("/ranges", s.ranges)

	l := api.Group("/listing")
	l.GET("", s.show)
	l.GET("/events", s.events)
	l.POST("/init", s.initialize)
	l.POST("/search/location", s.searchByLocation)
	l.POST("/search/name", s.searchByName)
	l.POST("/sort/atoz", s.action(s.ctrl.SortAlphabetical))
	l.POST("/sort/nearest", s.action(s.ctrl.SortByNearest))
	l.POST("/page/next", s.action(s.ctrl.PageNext))
	l.POST("/page/prev", s.action(s.ctrl.PageBackward))
	l.POST("/more", s.action(s.ctrl.LoadMore))
	l.PUT("/range", s.setRange)

	r.GET(listing.ErrorRoute, s.errorPage)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// Run serves the API on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Serving listing API")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) response() Response {
	return s.responseFor(s.ctrl.View())
}

func (s *Server) responseFor(v listing.View) Response {
	loading, redirect := s.nav.Status()

	return Response{View: v, Loading: loading, Redirect: redirect}
}

// reply writes the listing after an action. Failures the listing handled
// by redirecting are reported as bad gateway with the redirect in the body.
func (s *Server) reply(c *gin.Context, err error) {
	resp := s.response()

	if err != nil && resp.Redirect != "" {
		c.JSON(http.StatusBadGateway, resp)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// detached keeps a search running when the client that started it goes
// away: the listing is shared by every client.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (s *Server) show(c *gin.Context) {
	c.JSON(http.StatusOK, s.response())
}

func (s *Server) ranges(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Ranges())
}

func (s *Server) initialize(c *gin.Context) {
	s.nav.clearRedirect()
	s.reply(c, s.ctrl.Initialize(detached(c)))
}

type locationRequest struct {
	Postcode string `json:"postcode" binding:"required"`
}

func (s *Server) searchByLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.nav.clearRedirect()

	// an unknown postcode only raises postcodeRetrievalIssue
	s.reply(c, s.ctrl.SearchByLocation(detached(c), req.Postcode))
}

type nameRequest struct {
	Query    string `json:"query"    binding:"required"`
	Postcode string `json:"postcode" binding:"required"`
}

func (s *Server) searchByName(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.nav.clearRedirect()

	err := s.ctrl.SearchByName(detached(c), req.Query, req.Postcode)
	if errors.Is(err, listing.ErrEmptyQuery) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.reply(c, err)
}

type rangeRequest struct {
	Range int `json:"range" binding:"required"`
}

func (s *Server) setRange(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.ctrl.SetRange(req.Range); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, s.response())
}

func (s *Server) action(fn func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		fn()
		c.JSON(http.StatusOK, s.response())
	}
}

func (s *Server) events(c *gin.Context) {
	ch, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("listing", s.response())
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case r, ok := <-ch:
			if !ok {
				return false
			}

			c.SSEvent("listing", r)

			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) errorPage(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Sorry, something went wrong while searching for organisations. Please try again later.",
	})
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()

	c.Next()

	entry := s.log.WithFields(logrus.Fields{
		"method":   c.Request.Method,
		"path":     c.FullPath(),
		"status":   c.Writer.Status(),
		"duration": time.Since(start),
	})

	if c.Writer.Status() >= http.StatusInternalServerError {
		entry.Warn("Request failed")

		return
	}

	entry.Debug("Request served")
}

// Copyright 2025 The OrgListing Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides utility functions for working with HTTP.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

/////////////////////////////////////////
/// RoundTrippers

// LoggingRoundTripper traces HTTP transactions through a logger at debug level.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Logger    logrus.FieldLogger
	DumpBody  bool
}

// reduce the content of the lines.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 256, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if len(line) > maxChars {
			line = line[0:maxChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	return lines
}

func (t *LoggingRoundTripper) log(lines []string) {
	for _, line := range lines {
		t.Logger.Debug(line)
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Logger == nil {
		return t.Transport.RoundTrip(req)
	}

	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	t.log(abbreviate(strings.Split(string(dump), "\n"), '>'))

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		t.Logger.WithError(err).Debugf("< FAILED: [%v]", time.Since(start))

		return nil, err
	}

	dump, err = httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	t.Logger.Debugf("< RESPONSE: [%v]", time.Since(start))
	t.log(abbreviate(strings.Split(string(dump), "\n"), '<'))

	return resp, nil
}

// DefaultHeadersRoundTripper sets headers the caller left empty.
type DefaultHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *DefaultHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	return t.Transport.RoundTrip(req)
}

// NewClient builds an HTTP client with header defaults and optional tracing.
func NewClient(timeout time.Duration, userAgent string, tracer logrus.FieldLogger, dumpBody bool) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &DefaultHeadersRoundTripper{
			Headers: map[string]string{
				"User-Agent": userAgent,
				"Accept":     "application/json",
			},
			Transport: &LoggingRoundTripper{
				Logger:    tracer,
				DumpBody:  dumpBody,
				Transport: transport,
			},
		},
	}
}

////////////////////////////////////////////////////

// StatusError is returned when a response carries an unexpected status code.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d", e.StatusCode)
}

// Validates that response media starts with the expected type.
func hasContentType(media, expected string) bool {
	return strings.EqualFold(
		expected,
		media[0:min(len(media), len(expected))],
	)
}

// AsReader checks status and media type of a response and returns its body
// transcoded to UTF-8. An empty Content-Type is accepted.
func AsReader(resp *http.Response, expectedMedia string) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	media := resp.Header.Get("Content-Type")
	if media != "" && !hasContentType(media, expectedMedia) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

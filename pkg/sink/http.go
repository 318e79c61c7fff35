// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

// HTTPSink uploads telemetry as a GET request carrying the readings in its
// query string: <url>?radio_id=<id>&temperature=21.50&...
type HTTPSink struct {
	url    string
	client *http.Client
	log    *logger.Logger
}

// NewHTTPSink creates an uploader for url. timeout bounds each request.
func NewHTTPSink(url string, timeout time.Duration, log *logger.Logger) *HTTPSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log.Named("upload"),
	}
}

// RequestURL returns the upload URL for t.
func (s *HTTPSink) RequestURL(t thermonet.Telemetry) string {
	sep := "?"
	if strings.Contains(s.url, "?") {
		sep = "&"
	}
	return s.url + sep + t.Query()
}

func (s *HTTPSink) Publish(ctx context.Context, t thermonet.Telemetry) error {
	url := s.RequestURL(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload telemetry: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload telemetry: server returned %s", resp.Status)
	}
	s.log.Debugw("telemetry uploaded", "url", url)
	return nil
}

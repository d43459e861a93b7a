// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sirseerhq/sirseer-pulse/internal/ratelimit"
	"github.com/sirseerhq/sirseer-pulse/pkg/version"
)

// maxResponseBytes caps a single response body.
const maxResponseBytes = 10 * 1024 * 1024

// newHTTPClient builds the HTTP client shared by both transports: pooled
// connections, a User-Agent, a response size cap, quota header recording
// and, when token is set, OAuth2 bearer authentication.
func newHTTPClient(token string, recorder *quotaRecorder) *http.Client {
	pooled := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	var base http.RoundTripper = &userAgentTransport{base: pooled}
	if recorder != nil {
		recorder.base = base
		base = recorder
	}

	if token == "" {
		return &http.Client{Transport: base}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: base})
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// userAgentTransport adds the User-Agent header and a response size limit.
type userAgentTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Body != nil {
		resp.Body = &limitedReader{ReadCloser: resp.Body, limit: maxResponseBytes}
	}

	return resp, nil
}

// quotaRecorder remembers the quota headers of the most recent response.
// GraphQL errors arrive as opaque strings, so the recorded headers are what
// tells a quota 403 apart from a permissions 403.
type quotaRecorder struct {
	base http.RoundTripper

	mu   sync.Mutex
	last *ratelimit.Info
}

// RoundTrip implements http.RoundTripper
func (r *quotaRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if info, ok := ratelimit.FromHeaders(resp.Header); ok {
		r.mu.Lock()
		r.last = &info
		r.mu.Unlock()
	}

	return resp, nil
}

// Last returns the quota seen on the most recent response, if any.
func (r *quotaRecorder) Last() *ratelimit.Info {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	info := *r.last
	return &info
}

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}

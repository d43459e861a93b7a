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

package fetcher

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress receives fire-and-forget notifications while a request runs.
// Implementations must not block.
type Progress interface {
	// UpdatePhase announces a new phase, e.g. "Loading from cache".
	UpdatePhase(label, detail string)

	// UpdateProgress reports records fetched so far against the upstream total.
	UpdateProgress(current, total int, detail string)
}

// NopProgress discards all notifications.
type NopProgress struct{}

// UpdatePhase implements Progress
func (NopProgress) UpdatePhase(string, string) {}

// UpdateProgress implements Progress
func (NopProgress) UpdateProgress(int, int, string) {}

// TerminalProgress renders progress on a single rewritten terminal line.
type TerminalProgress struct {
	w     io.Writer
	start time.Time
	now   func() time.Time

	mu    sync.Mutex
	dirty bool
}

// NewTerminalProgress creates a progress display writing to w (usually stderr).
func NewTerminalProgress(w io.Writer) *TerminalProgress {
	return &TerminalProgress{w: w, start: time.Now(), now: time.Now}
}

// UpdatePhase implements Progress
func (p *TerminalProgress) UpdatePhase(label, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLocked()
	if detail == "" {
		fmt.Fprintf(p.w, "%s...\n", label)
		return
	}
	fmt.Fprintf(p.w, "%s: %s\n", label, detail)
}

// UpdateProgress implements Progress. It displays progress with percentage
// and ETA.
func (p *TerminalProgress) UpdateProgress(current, total int, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total <= 0 {
		fmt.Fprintf(p.w, "\r\033[KProgress: %d PRs | %s", current, detail)
		p.dirty = true
		return
	}

	percent := float64(current) * 100 / float64(total)
	elapsed := p.now().Sub(p.start)

	// Calculate ETA
	var eta string
	if current > 0 && current < total {
		totalTime := elapsed.Seconds() * float64(total) / float64(current)
		remaining := time.Duration(totalTime-elapsed.Seconds()) * time.Second

		if remaining > 0 {
			eta = fmt.Sprintf(" | ETA: %s", remaining.Round(time.Second))
		}
	}

	fmt.Fprintf(p.w, "\r\033[KProgress: %d / %d PRs [%.1f%%]%s | %s",
		current, total, percent, eta, detail)
	p.dirty = true
}

// Done clears the progress line and prints msg, if any.
func (p *TerminalProgress) Done(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLocked()
	if msg != "" {
		fmt.Fprintln(p.w, msg)
	}
}

func (p *TerminalProgress) clearLocked() {
	if p.dirty {
		fmt.Fprint(p.w, "\r\033[K") // Clear progress line
		p.dirty = false
	}
}

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
	"context"
	"fmt"

	pulseerrors "github.com/sirseerhq/sirseer-pulse/internal/errors"
)

// Ticket is the handle of one in-flight request. Its context is cancelled
// when a newer request supersedes it or when Release is called.
type Ticket struct {
	ID  uint64
	Ctx context.Context

	cancel context.CancelFunc
}

// Release frees the ticket's context.
func (t Ticket) Release() {
	if t.cancel != nil {
		t.cancel()
	}
}

// lane tracks the latest request of one kind.
type lane struct {
	id     uint64
	cancel context.CancelFunc
}

// Begin starts a new primary request. The previous primary request and any
// comparison request in flight are cancelled.
func (f *Fetcher) Begin(parent context.Context) Ticket {
	ctx, cancel := context.WithCancel(parent)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelLocked(&f.primary)
	f.cancelLocked(&f.comparison)
	f.seq++
	f.primary = lane{id: f.seq, cancel: cancel}

	return Ticket{ID: f.seq, Ctx: ctx, cancel: cancel}
}

// beginComparison starts a comparison request, cancelling only the previous
// comparison. It is still superseded by the next Begin.
func (f *Fetcher) beginComparison(parent context.Context) Ticket {
	ctx, cancel := context.WithCancel(parent)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelLocked(&f.comparison)
	f.seq++
	f.comparison = lane{id: f.seq, cancel: cancel}

	return Ticket{ID: f.seq, Ctx: ctx, cancel: cancel}
}

func (f *Fetcher) cancelLocked(l *lane) {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Current reports whether id is still the latest primary or comparison
// request.
func (f *Fetcher) Current(id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isCurrentLocked(id)
}

func (f *Fetcher) isCurrentLocked(id uint64) bool {
	switch id {
	case f.primary.id:
		return true
	case f.comparison.id:
		return id > f.primary.id
	default:
		return false
	}
}

// settle turns the outcome of ticket into the caller-visible outcome:
// superseded tickets always report ErrSuperseded.
func (f *Fetcher) settle(t Ticket, what string, err error) error {
	if !f.Current(t.ID) {
		return fmt.Errorf("%s was superseded by a newer request: %w", what, pulseerrors.ErrSuperseded)
	}
	return err
}

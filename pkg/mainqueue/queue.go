// mediastate - Inline media attachment state for chat clients.
// Copyright (C) 2026 Tulir Asokan
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mainqueue provides the single presentation queue that all status
// deliveries and decoration mutations run on.
package mainqueue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type Queue interface {
	// Post schedules fn to run on the queue. It never blocks on fn itself.
	Post(fn func())
}

// Serial runs posted functions one at a time, in order, on the goroutine
// that called Run.
type Serial struct {
	log zerolog.Logger

	lock    sync.Mutex
	pending []func()
	wakeup  chan struct{}
}

var _ Queue = (*Serial)(nil)

func NewSerial(log zerolog.Logger) *Serial {
	return &Serial{
		log:    log.With().Str("component", "main queue").Logger(),
		wakeup: make(chan struct{}, 1),
	}
}

func (s *Serial) Post(fn func()) {
	s.lock.Lock()
	s.pending = append(s.pending, fn)
	s.lock.Unlock()
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

// Sync posts a no-op and waits until it has run, i.e. until everything
// posted before the call has been executed.
func (s *Serial) Sync(ctx context.Context) error {
	done := make(chan struct{})
	s.Post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted functions until ctx is cancelled.
func (s *Serial) Run(ctx context.Context) {
	for {
		s.lock.Lock()
		batch := s.pending
		s.pending = nil
		s.lock.Unlock()
		for _, fn := range batch {
			s.run(fn)
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-s.wakeup:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Serial) run(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error().
				Any("panic", err).
				Stack().
				Msg("Panic in main queue task")
		}
	}()
	fn()
}

// Manual only runs work when Drain is called. It's meant for tests that want
// to control exactly when deliveries happen.
type Manual struct {
	lock    sync.Mutex
	pending []func()
}

var _ Queue = (*Manual)(nil)

func (m *Manual) Post(fn func()) {
	m.lock.Lock()
	m.pending = append(m.pending, fn)
	m.lock.Unlock()
}

func (m *Manual) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.pending)
}

// Drain runs queued work, including work posted while draining, and returns
// the number of functions executed.
func (m *Manual) Drain() int {
	count := 0
	for {
		m.lock.Lock()
		batch := m.pending
		m.pending = nil
		m.lock.Unlock()
		if len(batch) == 0 {
			return count
		}
		for _, fn := range batch {
			fn()
			count++
		}
	}
}

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


// Package resource contains in-process implementations of the status source
// and fetch transport used by the attachment controller.
package resource

import (
	"context"
	"sync"
)

// topic keeps the latest value for one key and fans it out to subscribers.
// Slow subscribers only ever see the most recent value.
type topic[T any] struct {
	lock   sync.Mutex
	value  T
	subs   map[uint64]chan T
	nextID uint64
}

func newTopic[T any](initial T) *topic[T] {
	return &topic[T]{value: initial, subs: make(map[uint64]chan T)}
}

func (t *topic[T]) get() T {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.value
}

func (t *topic[T]) publish(val T) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.value = val
	for _, ch := range t.subs {
		offerLatest(ch, val)
	}
}

// subscribe returns a channel that receives the current value right away and
// every later one. The channel is closed once ctx is done.
func (t *topic[T]) subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	t.lock.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	ch <- t.value
	t.lock.Unlock()
	go func() {
		<-ctx.Done()
		t.lock.Lock()
		delete(t.subs, id)
		close(ch)
		t.lock.Unlock()
	}()
	return ch
}

func (t *topic[T]) subscribers() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.subs)
}

// offerLatest replaces a value the receiver hasn't picked up yet. Only called
// with the topic lock held, so nobody else can fill the buffer in between.
func offerLatest[T any](ch chan T, val T) {
	select {
	case ch <- val:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- val
	}
}

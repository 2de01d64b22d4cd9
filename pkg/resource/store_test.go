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


package resource

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/mediastate/pkg/media"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case val, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return val
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	panic("unreachable")
}

func TestStoreStartsRemote(t *testing.T) {
	store := NewStore(zerolog.Nop())
	assert.Equal(t, media.Remote(), store.Get("unknown"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := store.FetchStatus(ctx, media.NewImage("img"))
	assert.Equal(t, media.Remote(), receive(t, ch))

	store.Set("img", media.Fetching(0.5, true))
	assert.Equal(t, media.Fetching(0.5, true), receive(t, ch))
}

func TestStoreSubscriberSeesLatestOnly(t *testing.T) {
	store := NewStore(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := store.FetchStatus(ctx, media.NewImage("img"))

	store.Set("img", media.Fetching(0.1, true))
	store.Set("img", media.Fetching(0.2, true))
	store.Set("img", media.Local())
	assert.Equal(t, media.Local(), receive(t, ch))
	select {
	case val := <-ch:
		t.Fatalf("unexpected extra value %v", val)
	default:
	}
}

func TestStoreSubscriptionClosesOnCancel(t *testing.T) {
	store := NewStore(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	ch := store.FetchStatus(ctx, media.NewImage("img"))
	receive(t, ch)
	assert.Equal(t, 1, store.Subscribers("img"))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, 0, store.Subscribers("img"))
	store.Set("img", media.Local())
}

func TestPendingMessages(t *testing.T) {
	pm := NewPendingMessages()
	assert.Nil(t, pm.Get("msg"))
	pm.Clear("msg")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &Source{Store: NewStore(zerolog.Nop()), Pending: pm}
	ch := src.SendProgress(ctx, "msg")
	assert.Nil(t, receive(t, ch))

	pm.Set("msg", 1.5)
	progress := receive(t, ch)
	require.NotNil(t, progress)
	assert.Equal(t, 1.0, progress.Progress)

	pm.Clear("msg")
	assert.Nil(t, receive(t, ch))
	assert.Nil(t, pm.Get("msg"))
}

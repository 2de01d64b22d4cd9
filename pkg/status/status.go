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

package status

import (
	"context"
	"errors"

	"go.mau.fi/mediastate/pkg/mainqueue"
	"go.mau.fi/mediastate/pkg/media"
)

var ErrStatusUnavailable = errors.New("status stream ended without a final status")

// Source produces status streams. Cancelling the context unsubscribes, and a
// closed channel means the stream completed.
type Source interface {
	FetchStatus(ctx context.Context, ref media.Ref) <-chan media.FetchStatus
	// SendProgress streams the upload progress of an outgoing message. A nil
	// value means the message isn't pending.
	SendProgress(ctx context.Context, messageID string) <-chan *media.SendProgress
}

// Effective overlays the send progress of an outgoing message on top of the
// fetch status of its media.
func Effective(fetch media.FetchStatus, send *media.SendProgress) media.FetchStatus {
	if send != nil {
		return media.Fetching(send.Progress, true)
	}
	return fetch
}

type Handlers struct {
	OnStatus func(media.FetchStatus)
	// OnComplete is called once after the fetch stream closes and no send
	// progress is pending any more. The error is ErrStatusUnavailable if the
	// fetch stream never reached Local or Remote.
	OnComplete func(err error)
}

// Merge combines the latest values of the fetch and send streams and delivers
// the effective status on the queue. send may be nil, in which case fetch
// statuses are passed through as-is. Nothing is delivered after ctx is done.
func Merge(ctx context.Context, queue mainqueue.Queue, fetch <-chan media.FetchStatus, send <-chan *media.SendProgress, handlers Handlers) {
	go merge(ctx, queue, fetch, send, handlers)
}

func merge(ctx context.Context, queue mainqueue.Queue, fetch <-chan media.FetchStatus, send <-chan *media.SendProgress, handlers Handlers) {
	deliver := func(fn func()) {
		queue.Post(func() {
			if ctx.Err() == nil {
				fn()
			}
		})
	}

	var latestFetch media.FetchStatus
	var latestSend *media.SendProgress
	haveFetch := false
	haveSend := send == nil
	sendOpen := send != nil
	fetchDone := false
	emit := func() {
		if !haveFetch || !haveSend {
			return
		}
		effective := Effective(latestFetch, latestSend)
		if handlers.OnStatus != nil {
			deliver(func() { handlers.OnStatus(effective) })
		}
	}
	// finished reports whether no further emission can change the effective
	// status: the fetch stream is gone and no send overlay is pending.
	finished := func() bool {
		if !fetchDone {
			return false
		}
		return !haveFetch || !sendOpen || (haveSend && latestSend == nil)
	}

	for !finished() {
		select {
		case <-ctx.Done():
			return
		case val, ok := <-fetch:
			if !ok {
				fetch = nil
				fetchDone = true
				continue
			}
			latestFetch = val
			haveFetch = true
			emit()
		case val, ok := <-send:
			if !ok {
				// A nil channel blocks forever, so the closed stream drops out
				// of the select while its last value is kept.
				send = nil
				sendOpen = false
				if !haveSend {
					haveSend = true
					emit()
				}
				continue
			}
			latestSend = val
			haveSend = true
			emit()
		}
	}

	var err error
	if !haveFetch || !latestFetch.IsTerminal() {
		err = ErrStatusUnavailable
	}
	if handlers.OnComplete != nil {
		deliver(func() { handlers.OnComplete(err) })
	}
}

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

package attachment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"go.mau.fi/mediastate/pkg/decoration"
	"go.mau.fi/mediastate/pkg/mainqueue"
	"go.mau.fi/mediastate/pkg/media"
)

type subscription[T any] struct {
	ctx context.Context
	ch  chan T
}

// fakeSource hands out buffered channels and lets the test push into the
// most recent subscription for a key.
type fakeSource struct {
	lock  sync.Mutex
	fetch map[string][]*subscription[media.FetchStatus]
	send  map[string][]*subscription[*media.SendProgress]
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		fetch: make(map[string][]*subscription[media.FetchStatus]),
		send:  make(map[string][]*subscription[*media.SendProgress]),
	}
}

func (fs *fakeSource) FetchStatus(ctx context.Context, ref media.Ref) <-chan media.FetchStatus {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	sub := &subscription[media.FetchStatus]{ctx: ctx, ch: make(chan media.FetchStatus, 16)}
	fs.fetch[ref.ID] = append(fs.fetch[ref.ID], sub)
	return sub.ch
}

func (fs *fakeSource) SendProgress(ctx context.Context, messageID string) <-chan *media.SendProgress {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	sub := &subscription[*media.SendProgress]{ctx: ctx, ch: make(chan *media.SendProgress, 16)}
	fs.send[messageID] = append(fs.send[messageID], sub)
	return sub.ch
}

func (fs *fakeSource) latestFetch(t *testing.T, mediaID string) *subscription[media.FetchStatus] {
	t.Helper()
	fs.lock.Lock()
	defer fs.lock.Unlock()
	subs := fs.fetch[mediaID]
	require.NotEmpty(t, subs, "no fetch status subscription for %s", mediaID)
	return subs[len(subs)-1]
}

func (fs *fakeSource) pushFetch(t *testing.T, mediaID string, statuses ...media.FetchStatus) {
	t.Helper()
	sub := fs.latestFetch(t, mediaID)
	for _, s := range statuses {
		sub.ch <- s
	}
}

func (fs *fakeSource) closeFetch(t *testing.T, mediaID string) {
	t.Helper()
	close(fs.latestFetch(t, mediaID).ch)
}

func (fs *fakeSource) pushSend(t *testing.T, messageID string, progress *media.SendProgress) {
	t.Helper()
	fs.lock.Lock()
	subs := fs.send[messageID]
	fs.lock.Unlock()
	require.NotEmpty(t, subs, "no send progress subscription for %s", messageID)
	subs[len(subs)-1].ch <- progress
}

func (fs *fakeSource) sendSubscriptions(messageID string) int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return len(fs.send[messageID])
}

func (fs *fakeSource) liveFetchSubscriptions() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	count := 0
	for _, subs := range fs.fetch {
		for _, sub := range subs {
			if sub.ctx.Err() == nil {
				count++
			}
		}
	}
	return count
}

type fakeTransport struct {
	started     []string
	contexts    []context.Context
	interactive []string
	startErr    error
}

func (ft *fakeTransport) Start(ctx context.Context, ref media.Ref) error {
	ft.started = append(ft.started, ref.ID)
	if ft.startErr != nil {
		return ft.startErr
	}
	ft.contexts = append(ft.contexts, ctx)
	return nil
}

func (ft *fakeTransport) CancelInteractive(ref media.Ref) {
	ft.interactive = append(ft.interactive, ref.ID)
}

func (ft *fakeTransport) live() int {
	count := 0
	for _, ctx := range ft.contexts {
		if ctx.Err() == nil {
			count++
		}
	}
	return count
}

type recordedRing struct {
	p        *recordingPresenter
	id       int
	state    decoration.RingState
	removed  bool
	fading   bool
	fadeFor  time.Duration
	fadeDone func()
}

func (r *recordedRing) record(format string, args ...any) {
	r.p.commands = append(r.p.commands, fmt.Sprintf("ring%d.", r.id)+fmt.Sprintf(format, args...))
}

func (r *recordedRing) SetProgress(progress float64) {
	r.state = decoration.RingState{Mode: decoration.RingFetching, Progress: progress}
	r.record("progress(%.2f)", progress)
}

func (r *recordedRing) SetIcon(icon decoration.Icon) {
	r.state = decoration.RingState{Mode: decoration.RingIcon, Icon: icon}
	r.record("icon(%s)", icon)
}

func (r *recordedRing) SetRemote() {
	r.state = decoration.RingState{Mode: decoration.RingRemote}
	r.record("remote")
}

func (r *recordedRing) FadeOutAndRemove(duration time.Duration, done func()) {
	r.fading = true
	r.fadeFor = duration
	r.fadeDone = done
	r.record("fade(%s)", duration)
}

func (r *recordedRing) CancelFadeOut() {
	r.fading = false
	r.fadeDone = nil
	r.record("cancelFade")
}

func (r *recordedRing) Remove() {
	r.removed = true
	r.fading = false
	r.record("remove")
}

// finishFade simulates the fade animation completing.
func (r *recordedRing) finishFade() {
	if !r.fading {
		return
	}
	r.fading = false
	r.removed = true
	done := r.fadeDone
	r.fadeDone = nil
	if done != nil {
		done()
	}
}

type recordedTimer struct {
	fraction  float64
	remaining time.Duration
	removed   bool
}

func (rt *recordedTimer) Remove() {
	rt.removed = true
}

type recordingPresenter struct {
	rings        []*recordedRing
	timers       []*recordedTimer
	animateFirst []bool
	accessory    string
	commands     []string
}

func (p *recordingPresenter) ShowRing(initial decoration.RingState) decoration.Ring {
	ring := &recordedRing{p: p, id: len(p.rings) + 1, state: initial}
	p.rings = append(p.rings, ring)
	p.commands = append(p.commands, fmt.Sprintf("showRing%d(%s)", ring.id, initial))
	return ring
}

func (p *recordingPresenter) ShowTimer(fractionElapsed float64, remaining time.Duration) decoration.Timer {
	timer := &recordedTimer{fraction: fractionElapsed, remaining: remaining}
	p.timers = append(p.timers, timer)
	p.commands = append(p.commands, fmt.Sprintf("showTimer(%.1f, %s)", fractionElapsed, remaining))
	return timer
}

func (p *recordingPresenter) SetAnimatesFirstTransition(animate bool) {
	p.animateFirst = append(p.animateFirst, animate)
}

func (p *recordingPresenter) ShowAccessory(text string) {
	p.accessory = text
}

func (p *recordingPresenter) HideAccessory() {
	p.accessory = ""
}

func (p *recordingPresenter) liveRings() []*recordedRing {
	var live []*recordedRing
	for _, ring := range p.rings {
		if !ring.removed {
			live = append(live, ring)
		}
	}
	return live
}

func (p *recordingPresenter) liveTimers() int {
	count := 0
	for _, timer := range p.timers {
		if !timer.removed {
			count++
		}
	}
	return count
}

type recordingGallery struct {
	opened []DisplayMode
}

func (g *recordingGallery) Open(ref media.Ref, msg media.Message, mode DisplayMode) {
	g.opened = append(g.opened, mode)
}

type harness struct {
	t         *testing.T
	queue     *mainqueue.Manual
	source    *fakeSource
	transport *fakeTransport
	presenter *recordingPresenter
	gallery   *recordingGallery
	now       time.Time
	ctrl      *Controller
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:         t,
		queue:     &mainqueue.Manual{},
		source:    newFakeSource(),
		transport: &fakeTransport{},
		presenter: &recordingPresenter{},
		gallery:   &recordingGallery{},
		now:       time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
	h.ctrl = New(Params{
		Queue:        h.queue,
		Source:       h.source,
		Transport:    h.transport,
		Presenter:    h.presenter,
		Gallery:      h.gallery,
		Clock:        func() time.Time { return h.now },
		FadeDuration: 150 * time.Millisecond,
		Log:          zerolog.Nop(),
	})
	return h
}

// deliver waits until n callbacks have been posted and runs them.
func (h *harness) deliver(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.queue.Len() >= n }, 5*time.Second, time.Millisecond)
	h.queue.Drain()
}

// push sends statuses for mediaID and delivers all of them.
func (h *harness) push(mediaID string, statuses ...media.FetchStatus) {
	h.t.Helper()
	h.source.pushFetch(h.t, mediaID, statuses...)
	h.deliver(len(statuses))
}

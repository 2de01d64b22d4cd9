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

package decoration

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"go.mau.fi/mediastate/pkg/mainqueue"
)

// LogPresenter is a headless presenter that logs every command it receives.
// Fade-outs complete after their duration like a real animation would.
type LogPresenter struct {
	log    zerolog.Logger
	queue  mainqueue.Queue
	nextID atomic.Uint64
}

var _ Presenter = (*LogPresenter)(nil)

func NewLogPresenter(log zerolog.Logger, queue mainqueue.Queue) *LogPresenter {
	return &LogPresenter{
		log:   log.With().Str("component", "presenter").Logger(),
		queue: queue,
	}
}

func (lp *LogPresenter) ShowRing(initial RingState) Ring {
	ring := &logRing{
		log:   lp.log.With().Uint64("ring_id", lp.nextID.Add(1)).Logger(),
		queue: lp.queue,
	}
	ring.log.Info().Stringer("state", initial).Msg("Showing progress ring")
	return ring
}

func (lp *LogPresenter) ShowTimer(fractionElapsed float64, remaining time.Duration) Timer {
	timer := &logTimer{log: lp.log.With().Uint64("timer_id", lp.nextID.Add(1)).Logger()}
	timer.log.Info().
		Float64("fraction_elapsed", fractionElapsed).
		Dur("remaining", remaining).
		Msg("Starting self-destruct timer")
	return timer
}

func (lp *LogPresenter) SetAnimatesFirstTransition(animate bool) {
	lp.log.Debug().Bool("animate", animate).Msg("Set first transition animation")
}

func (lp *LogPresenter) ShowAccessory(text string) {
	lp.log.Info().Str("text", text).Msg("Showing accessory")
}

func (lp *LogPresenter) HideAccessory() {
	lp.log.Debug().Msg("Hiding accessory")
}

type logRing struct {
	log   zerolog.Logger
	queue mainqueue.Queue
	fade  *time.Timer
}

func (lr *logRing) SetProgress(progress float64) {
	lr.log.Info().Float64("progress", progress).Msg("Ring progress")
}

func (lr *logRing) SetIcon(icon Icon) {
	lr.log.Info().Stringer("icon", icon).Msg("Ring icon")
}

func (lr *logRing) SetRemote() {
	lr.log.Info().Msg("Ring showing download affordance")
}

func (lr *logRing) FadeOutAndRemove(duration time.Duration, done func()) {
	lr.CancelFadeOut()
	lr.log.Info().Dur("duration", duration).Msg("Fading out ring")
	var fade *time.Timer
	fade = time.AfterFunc(duration, func() {
		lr.queue.Post(func() {
			if lr.fade != fade {
				return
			}
			lr.fade = nil
			lr.log.Info().Msg("Ring removed after fade")
			if done != nil {
				done()
			}
		})
	})
	lr.fade = fade
}

func (lr *logRing) CancelFadeOut() {
	if lr.fade != nil {
		lr.fade.Stop()
		lr.fade = nil
		lr.log.Debug().Msg("Cancelled ring fade")
	}
}

func (lr *logRing) Remove() {
	lr.CancelFadeOut()
	lr.log.Info().Msg("Ring removed")
}

type logTimer struct {
	log zerolog.Logger
}

func (lt *logTimer) Remove() {
	lt.log.Info().Msg("Timer removed")
}

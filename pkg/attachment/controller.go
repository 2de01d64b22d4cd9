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

// Package attachment contains the state machine behind a single inline media
// attachment: which decoration is visible, what it displays and how it
// transitions as statuses arrive.
package attachment

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"go.mau.fi/mediastate/pkg/decoration"
	"go.mau.fi/mediastate/pkg/fetch"
	"go.mau.fi/mediastate/pkg/mainqueue"
	"go.mau.fi/mediastate/pkg/media"
	"go.mau.fi/mediastate/pkg/status"
)

const DefaultFadeDuration = 200 * time.Millisecond

type Params struct {
	Queue     mainqueue.Queue
	Source    status.Source
	Transport fetch.Transport
	Presenter decoration.Presenter
	// Gallery is optional, Open is a no-op without it.
	Gallery Gallery

	Clock        func() time.Time
	FadeDuration time.Duration
	Log          zerolog.Logger
}

// Controller drives the decorations of one attachment slot. A slot is reused
// across messages by calling Bind again.
//
// All methods must be called on the presentation queue given in Params.
type Controller struct {
	queue        mainqueue.Queue
	source       status.Source
	presenter    decoration.Presenter
	gallery      Gallery
	fetch        *fetch.Controller
	clock        func() time.Time
	fadeDuration time.Duration
	baseLog      zerolog.Logger
	log          zerolog.Logger

	ref        media.Ref
	msg        media.Message
	bound      bool
	closed     bool
	generation uint64
	stopStatus context.CancelFunc

	status     media.FetchStatus
	haveStatus bool
	phase      Phase

	ring      decoration.Ring
	ringState decoration.RingState
	fading    bool
	timer     decoration.Timer
	accessory bool

	animateFirstSet bool
	animateFirst    bool
}

func New(params Params) *Controller {
	if params.Clock == nil {
		params.Clock = time.Now
	}
	if params.FadeDuration <= 0 {
		params.FadeDuration = DefaultFadeDuration
	}
	log := params.Log.With().Str("component", "attachment").Logger()
	return &Controller{
		queue:        params.Queue,
		source:       params.Source,
		presenter:    params.Presenter,
		gallery:      params.Gallery,
		fetch:        fetch.NewController(params.Transport, params.Log),
		clock:        params.Clock,
		fadeDuration: params.FadeDuration,
		baseLog:      log,
		log:          log,
	}
}

// Bind discards everything belonging to the previous binding and starts
// tracking the given media. Whether the send progress of msg is overlaid is
// decided here and not re-evaluated until the next Bind.
func (c *Controller) Bind(ref media.Ref, msg media.Message) {
	if c.closed {
		return
	}
	c.teardown()
	c.generation++
	c.ref = ref
	c.msg = msg
	c.bound = true
	c.phase = PhaseBound
	c.log = c.baseLog.With().
		Str("media_id", ref.ID).
		Str("message_id", msg.ID).
		Uint64("binding", c.generation).
		Logger()
	c.log.Debug().
		Stringer("kind", ref.Kind).
		Bool("secret", msg.Secret).
		Bool("self_destruct", msg.SelfDestruct != nil).
		Bool("tracks_send_progress", msg.TracksSendProgress()).
		Msg("Bound attachment")

	c.fetch.Bind(ref)
	if label := media.AccessoryLabel(ref); label != "" {
		c.presenter.ShowAccessory(label)
		c.accessory = true
	}
	c.subscribe()
	if ref.IsStillImage() {
		c.startFetch()
	}
}

// Unbind releases the status subscription, the fetch handle and all
// decorations. The underlying transfer is left alone.
func (c *Controller) Unbind() {
	if !c.bound {
		return
	}
	c.teardown()
	c.generation++
	c.ref = media.Ref{}
	c.msg = media.Message{}
	c.bound = false
	c.phase = PhaseIdle
	c.log.Debug().Msg("Unbound attachment")
	c.log = c.baseLog
}

// Close releases everything. The controller can't be bound again afterwards.
func (c *Controller) Close() {
	c.Unbind()
	c.closed = true
}

// Cancel stops observing the fetch and the status of the bound media while
// keeping the current decoration. Fetch resumes observation.
func (c *Controller) Cancel() {
	if !c.bound {
		return
	}
	c.fetch.Cancel()
	c.unsubscribe()
	c.generation++
	c.log.Debug().Msg("Cancelled attachment observation")
}

// Fetch starts fetching the bound media, e.g. after the user tapped the
// download affordance.
func (c *Controller) Fetch() {
	if !c.bound {
		return
	}
	if c.stopStatus == nil {
		c.subscribe()
	}
	c.startFetch()
}

// CancelFetching asks the transport to abandon the transfer of the bound
// media. The resulting Remote status arrives through the status stream.
func (c *Controller) CancelFetching() {
	if !c.bound {
		return
	}
	c.fetch.CancelTransfer()
}

// UpdateMessage replaces the message metadata (secret flag, self-destruct
// countdown) of the current binding without resubscribing. The last status
// is re-evaluated right away.
func (c *Controller) UpdateMessage(msg media.Message) {
	if !c.bound {
		return
	}
	c.msg = msg
	if c.haveStatus {
		c.render()
	}
}

func (c *Controller) Ref() media.Ref {
	return c.ref
}

func (c *Controller) Phase() Phase {
	return c.phase
}

// Status returns the last effective status and whether one has arrived for
// the current binding.
func (c *Controller) Status() (media.FetchStatus, bool) {
	return c.status, c.haveStatus
}

func (c *Controller) Decoration() DecorationState {
	switch {
	case c.phase == PhaseShowingTimer:
		return DecorationState{Kind: DecorationTimer, TimerStarted: c.timer != nil}
	case c.ring != nil && !c.fading:
		return DecorationState{Kind: DecorationRing, Ring: c.ringState}
	default:
		return DecorationState{Kind: DecorationNone}
	}
}

func (c *Controller) subscribe() {
	ctx, cancel := context.WithCancel(context.Background())
	c.stopStatus = cancel
	gen := c.generation
	fetchStatus := c.source.FetchStatus(ctx, c.ref)
	var sendProgress <-chan *media.SendProgress
	if c.msg.TracksSendProgress() {
		sendProgress = c.source.SendProgress(ctx, c.msg.ID)
	}
	status.Merge(ctx, c.queue, fetchStatus, sendProgress, status.Handlers{
		OnStatus: func(s media.FetchStatus) {
			if c.generation == gen {
				c.apply(s)
			}
		},
		OnComplete: func(err error) {
			if c.generation == gen {
				c.complete(err)
			}
		},
	})
}

func (c *Controller) unsubscribe() {
	if c.stopStatus != nil {
		c.stopStatus()
		c.stopStatus = nil
	}
}

func (c *Controller) startFetch() {
	err := c.fetch.Start(c.ref)
	if err != nil {
		c.log.Debug().Err(err).Msg("Reverting to remote after fetch start failure")
		c.apply(media.Remote())
	}
}

func (c *Controller) complete(err error) {
	c.unsubscribe()
	if errors.Is(err, status.ErrStatusUnavailable) {
		c.log.Debug().Msg("Status stream ended without a final status, treating as remote")
		c.apply(media.Remote())
	}
}

func (c *Controller) apply(s media.FetchStatus) {
	c.status = s
	c.haveStatus = true
	c.log.Trace().Stringer("status", s).Msg("Applying status")
	c.render()
}

func (c *Controller) render() {
	if sd := c.msg.SelfDestruct; sd != nil {
		c.removeRing()
		c.phase = PhaseShowingTimer
		if c.status.State == media.StateLocal && c.timer == nil {
			now := c.clock()
			fraction := sd.ElapsedFraction(now)
			remaining := sd.Remaining(now)
			c.log.Debug().
				Float64("fraction_elapsed", fraction).
				Dur("remaining", remaining).
				Msg("Starting self-destruct countdown")
			c.timer = c.presenter.ShowTimer(fraction, remaining)
		}
		return
	}
	c.removeTimer()

	if c.status.State == media.StateLocal && c.ref.IsStillImage() && !c.msg.Secret {
		c.setAnimatesFirstTransition(false)
		c.fadeOutRing()
		c.phase = PhaseShowingNone
		return
	}
	c.setAnimatesFirstTransition(true)

	switch c.status.State {
	case media.StateLocal:
		icon := decoration.IconNone
		if c.msg.Secret {
			icon = decoration.IconSecretThumb
		} else if c.ref.IsVideoFile() {
			icon = decoration.IconPlay
		}
		c.showRing(decoration.RingState{Mode: decoration.RingIcon, Icon: icon})
	case media.StateFetching:
		c.showRing(decoration.RingState{Mode: decoration.RingFetching, Progress: c.status.Progress})
	default:
		c.showRing(decoration.RingState{Mode: decoration.RingRemote})
	}
	c.phase = PhaseShowingRing
}

func (c *Controller) showRing(state decoration.RingState) {
	if c.ring == nil {
		c.ring = c.presenter.ShowRing(state)
		c.ringState = state
		return
	}
	if c.fading {
		c.ring.CancelFadeOut()
		c.fading = false
	}
	if state == c.ringState {
		return
	}
	switch state.Mode {
	case decoration.RingFetching:
		c.ring.SetProgress(state.Progress)
	case decoration.RingIcon:
		c.ring.SetIcon(state.Icon)
	case decoration.RingRemote:
		c.ring.SetRemote()
	}
	c.ringState = state
}

func (c *Controller) fadeOutRing() {
	if c.ring == nil || c.fading {
		return
	}
	full := decoration.RingState{Mode: decoration.RingFetching, Progress: 1}
	if c.ringState != full {
		c.ring.SetProgress(1)
		c.ringState = full
	}
	c.fading = true
	ring := c.ring
	ring.FadeOutAndRemove(c.fadeDuration, func() {
		if c.ring != ring || !c.fading {
			return
		}
		c.ring = nil
		c.ringState = decoration.RingState{}
		c.fading = false
	})
}

func (c *Controller) removeRing() {
	if c.ring == nil {
		return
	}
	c.ring.Remove()
	c.ring = nil
	c.ringState = decoration.RingState{}
	c.fading = false
}

func (c *Controller) removeTimer() {
	if c.timer == nil {
		return
	}
	c.timer.Remove()
	c.timer = nil
}

func (c *Controller) setAnimatesFirstTransition(animate bool) {
	if c.animateFirstSet && c.animateFirst == animate {
		return
	}
	c.animateFirstSet = true
	c.animateFirst = animate
	c.presenter.SetAnimatesFirstTransition(animate)
}

func (c *Controller) teardown() {
	c.unsubscribe()
	c.fetch.Reset()
	c.removeRing()
	c.removeTimer()
	if c.accessory {
		c.presenter.HideAccessory()
		c.accessory = false
	}
	c.status = media.FetchStatus{}
	c.haveStatus = false
	c.animateFirstSet = false
}

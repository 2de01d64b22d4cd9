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
	"fmt"

	"go.mau.fi/mediastate/pkg/decoration"
	"go.mau.fi/mediastate/pkg/media"
)

type Phase int

const (
	PhaseIdle         Phase = iota // nothing bound
	PhaseBound                     // bound, no status yet
	PhaseShowingTimer              // self-destruct countdown
	PhaseShowingRing               // radial progress ring
	PhaseShowingNone               // no decoration, media is shown as-is
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBound:
		return "bound"
	case PhaseShowingTimer:
		return "showing-timer"
	case PhaseShowingRing:
		return "showing-ring"
	case PhaseShowingNone:
		return "showing-none"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

type DecorationKind int

const (
	DecorationNone DecorationKind = iota
	DecorationRing
	DecorationTimer
)

func (k DecorationKind) String() string {
	switch k {
	case DecorationNone:
		return "none"
	case DecorationRing:
		return "ring"
	case DecorationTimer:
		return "timer"
	default:
		return fmt.Sprintf("DecorationKind(%d)", int(k))
	}
}

// DecorationState is the decoration a controller currently considers active.
// A ring that is fading out counts as none.
type DecorationState struct {
	Kind DecorationKind
	Ring decoration.RingState
	// TimerStarted is false while the countdown waits for the media to
	// become local.
	TimerStarted bool
}

func (ds DecorationState) String() string {
	switch ds.Kind {
	case DecorationRing:
		return "ring " + ds.Ring.String()
	case DecorationTimer:
		if ds.TimerStarted {
			return "timer running"
		}
		return "timer waiting"
	default:
		return ds.Kind.String()
	}
}

type DisplayMode int

const (
	DisplayHistory DisplayMode = iota // browse the chat's media history
	DisplayAlone                      // just this item, e.g. a webpage preview
	DisplaySecret                     // secret media viewer
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayHistory:
		return "history"
	case DisplayAlone:
		return "alone"
	case DisplaySecret:
		return "secret"
	default:
		return fmt.Sprintf("DisplayMode(%d)", int(m))
	}
}

// Gallery opens the full-screen viewer.
type Gallery interface {
	Open(ref media.Ref, msg media.Message, mode DisplayMode)
}

// Open hands the bound media to the gallery. It has nothing to do with
// fetching and doesn't touch the state machine.
func (c *Controller) Open() {
	if !c.bound || c.gallery == nil {
		return
	}
	mode := DisplayHistory
	if c.msg.IsWebpage {
		mode = DisplayAlone
	} else if c.msg.Secret {
		mode = DisplaySecret
	}
	c.gallery.Open(c.ref, c.msg, mode)
}

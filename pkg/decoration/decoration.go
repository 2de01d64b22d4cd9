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

// Package decoration defines the sink that renders progress rings, countdown
// timers and accessory badges on top of an attachment.
package decoration

import (
	"fmt"
	"time"
)

type Icon int

const (
	IconNone Icon = iota
	IconPlay
	// IconSecretThumb is drawn with destination-out blending.
	IconSecretThumb
)

func (i Icon) String() string {
	switch i {
	case IconNone:
		return "none"
	case IconPlay:
		return "play"
	case IconSecretThumb:
		return "secret-thumb"
	default:
		return fmt.Sprintf("Icon(%d)", int(i))
	}
}

type RingMode int

const (
	RingRemote   RingMode = iota // tap to download
	RingFetching                 // progress arc
	RingIcon                     // static icon overlay
)

func (m RingMode) String() string {
	switch m {
	case RingRemote:
		return "remote"
	case RingFetching:
		return "fetching"
	case RingIcon:
		return "icon"
	default:
		return fmt.Sprintf("RingMode(%d)", int(m))
	}
}

type RingState struct {
	Mode     RingMode
	Progress float64
	Icon     Icon
}

func (rs RingState) String() string {
	switch rs.Mode {
	case RingFetching:
		return fmt.Sprintf("fetching(%.2f)", rs.Progress)
	case RingIcon:
		return fmt.Sprintf("icon(%s)", rs.Icon)
	default:
		return rs.Mode.String()
	}
}

// Ring is a live radial progress decoration.
type Ring interface {
	// SetProgress switches the ring to a progress arc and clears any icon.
	SetProgress(progress float64)
	SetIcon(icon Icon)
	SetRemote()
	// FadeOutAndRemove animates the ring away. done is called on the
	// presentation queue once the ring is gone, unless CancelFadeOut was
	// called first.
	FadeOutAndRemove(duration time.Duration, done func())
	CancelFadeOut()
	Remove()
}

// Timer is a live self-destruct countdown. Once shown it animates on its own.
type Timer interface {
	Remove()
}

// Presenter creates decorations. All methods are called on the presentation
// queue.
type Presenter interface {
	ShowRing(initial RingState) Ring
	// ShowTimer starts a countdown that is already fractionElapsed percent
	// done and finishes after remaining, i.e. at the end of the self-destruct
	// timeout rather than a full timeout from now.
	ShowTimer(fractionElapsed float64, remaining time.Duration) Timer
	// SetAnimatesFirstTransition toggles the fade-in of the image once its
	// first frame is available.
	SetAnimatesFirstTransition(animate bool)
	ShowAccessory(text string)
	HideAccessory()
}

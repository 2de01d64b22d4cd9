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

package media

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

type MessageFlags uint8

const (
	FlagUnsent MessageFlags = 1 << iota
	FlagFailed
)

func (f MessageFlags) Has(flag MessageFlags) bool {
	return f&flag == flag
}

// SelfDestruct is the countdown attached to a secret message once it has
// been opened.
type SelfDestruct struct {
	CountdownBegin time.Time     `json:"countdown_begin"`
	Timeout        time.Duration `json:"timeout"`
}

func (sd SelfDestruct) Remaining(now time.Time) time.Duration {
	remaining := sd.CountdownBegin.Add(sd.Timeout).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ElapsedFraction returns how much of the countdown has passed, in percent.
func (sd SelfDestruct) ElapsedFraction(now time.Time) float64 {
	if sd.Timeout <= 0 {
		return 100
	}
	timeout := sd.Timeout.Seconds()
	remaining := sd.CountdownBegin.Add(sd.Timeout).Sub(now).Seconds()
	return ClampUnit((timeout-remaining)/timeout) * 100
}

// Message is the context of the message owning an attachment.
type Message struct {
	ID           string        `json:"id"`
	Flags        MessageFlags  `json:"flags"`
	Secret       bool          `json:"secret"`
	SelfDestruct *SelfDestruct `json:"self_destruct,omitempty"`
	IsWebpage    bool          `json:"is_webpage,omitempty"`
}

// TracksSendProgress reports whether the send progress of the message should
// be overlaid on the fetch status.
func (m Message) TracksSendProgress() bool {
	return m.ID != "" && m.Flags.Has(FlagUnsent) && !m.Flags.Has(FlagFailed)
}

// AccessoryLabel is the badge text shown on video attachments, e.g.
// "1:05, 3.2 MB". Other media get an empty string.
func AccessoryLabel(ref Ref) string {
	if !ref.IsVideoFile() {
		return ""
	}
	return fmt.Sprintf("%s, %s", formatDuration(ref.Duration), humanize.Bytes(uint64(max(ref.Size, 0))))
}

func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	hours, minutes, seconds := total/3600, (total/60)%60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

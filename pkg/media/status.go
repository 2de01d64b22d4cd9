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

	"golang.org/x/exp/constraints"
)

type State int

const (
	StateRemote   State = iota // bytes only exist remotely
	StateFetching              // bytes are being transferred
	StateLocal                 // bytes are available locally
)

func (s State) String() string {
	switch s {
	case StateRemote:
		return "remote"
	case StateFetching:
		return "fetching"
	case StateLocal:
		return "local"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FetchStatus says where the bytes of a media item currently are.
type FetchStatus struct {
	State    State   `json:"state"`
	Progress float64 `json:"progress,omitempty"`
	IsActive bool    `json:"is_active,omitempty"`
}

func Remote() FetchStatus {
	return FetchStatus{State: StateRemote}
}

func Fetching(progress float64, active bool) FetchStatus {
	return FetchStatus{State: StateFetching, Progress: ClampUnit(progress), IsActive: active}
}

func Local() FetchStatus {
	return FetchStatus{State: StateLocal}
}

// IsTerminal reports whether the status is one a stream may legitimately
// end on.
func (fs FetchStatus) IsTerminal() bool {
	return fs.State == StateLocal || fs.State == StateRemote
}

func (fs FetchStatus) String() string {
	if fs.State == StateFetching {
		return fmt.Sprintf("fetching(%.2f, active=%t)", fs.Progress, fs.IsActive)
	}
	return fs.State.String()
}

// SendProgress is the upload progress of an unsent message. Streams carry
// *SendProgress and use nil when the message isn't pending anymore.
type SendProgress struct {
	Progress float64 `json:"progress"`
}

func ClampUnit[F constraints.Float](v F) F {
	if v != v || v < 0 {
		return 0
	} else if v > 1 {
		return 1
	}
	return v
}

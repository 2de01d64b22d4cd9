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

	"go.mau.fi/util/exsync"

	"go.mau.fi/mediastate/pkg/media"
	"go.mau.fi/mediastate/pkg/status"
)

// PendingMessages tracks the upload progress of outgoing messages.
type PendingMessages struct {
	entries *exsync.Map[string, *topic[*media.SendProgress]]
}

func NewPendingMessages() *PendingMessages {
	return &PendingMessages{
		entries: exsync.NewMap[string, *topic[*media.SendProgress]](),
	}
}

func (pm *PendingMessages) entry(messageID string) *topic[*media.SendProgress] {
	t, _ := pm.entries.GetOrSet(messageID, newTopic[*media.SendProgress](nil))
	return t
}

// Set records the upload progress of a message, clamped to [0, 1].
func (pm *PendingMessages) Set(messageID string, progress float64) {
	pm.entry(messageID).publish(&media.SendProgress{Progress: media.ClampUnit(progress)})
}

// Clear marks the message as no longer pending.
func (pm *PendingMessages) Clear(messageID string) {
	if t, ok := pm.entries.Get(messageID); ok {
		t.publish(nil)
	}
}

func (pm *PendingMessages) Get(messageID string) *media.SendProgress {
	if t, ok := pm.entries.Get(messageID); ok {
		return t.get()
	}
	return nil
}

func (pm *PendingMessages) SendProgress(ctx context.Context, messageID string) <-chan *media.SendProgress {
	return pm.entry(messageID).subscribe(ctx)
}

// Source combines a Store and PendingMessages into a status.Source.
type Source struct {
	Store   *Store
	Pending *PendingMessages
}

var _ status.Source = (*Source)(nil)

func (s *Source) FetchStatus(ctx context.Context, ref media.Ref) <-chan media.FetchStatus {
	return s.Store.FetchStatus(ctx, ref)
}

func (s *Source) SendProgress(ctx context.Context, messageID string) <-chan *media.SendProgress {
	return s.Pending.SendProgress(ctx, messageID)
}

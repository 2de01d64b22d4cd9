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
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"go.mau.fi/util/exsync"

	"go.mau.fi/mediastate/pkg/media"
	"go.mau.fi/mediastate/pkg/resource/resourcedb"
)

// Store holds the current fetch status of every media item the process
// knows about. Unknown media are Remote.
type Store struct {
	log     zerolog.Logger
	entries *exsync.Map[string, *topic[media.FetchStatus]]
}

func NewStore(log zerolog.Logger) *Store {
	return &Store{
		log:     log.With().Str("component", "status store").Logger(),
		entries: exsync.NewMap[string, *topic[media.FetchStatus]](),
	}
}

// LoadLocal marks every media item in the index as local. Entries whose
// cache file has disappeared are dropped from the index and stay remote.
func (s *Store) LoadLocal(ctx context.Context, query *resourcedb.LocalMediaQuery) error {
	all, err := query.GetAll(ctx)
	if err != nil {
		return err
	}
	loaded := 0
	for _, lm := range all {
		if verifyLocal(ctx, query, s.log, lm) {
			s.Set(lm.MediaID, media.Local())
			loaded++
		}
	}
	s.log.Debug().
		Int("count", loaded).
		Int("stale", len(all)-loaded).
		Msg("Loaded local media from index")
	return nil
}

// verifyLocal checks that the cache file of an index entry still exists.
// Entries pointing to a missing file are deleted.
func verifyLocal(ctx context.Context, query *resourcedb.LocalMediaQuery, log zerolog.Logger, lm *resourcedb.LocalMedia) bool {
	_, err := os.Stat(lm.Path)
	if err == nil {
		return true
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("media_id", lm.MediaID).Msg("Failed to check cached media file")
		return false
	}
	log.Debug().Str("media_id", lm.MediaID).Str("path", lm.Path).Msg("Cached media file is gone, dropping index entry")
	if err = query.Delete(ctx, lm.MediaID); err != nil {
		log.Warn().Err(err).Str("media_id", lm.MediaID).Msg("Failed to delete stale index entry")
	}
	return false
}

func (s *Store) entry(mediaID string) *topic[media.FetchStatus] {
	t, _ := s.entries.GetOrSet(mediaID, newTopic(media.Remote()))
	return t
}

func (s *Store) Get(mediaID string) media.FetchStatus {
	if t, ok := s.entries.Get(mediaID); ok {
		return t.get()
	}
	return media.Remote()
}

func (s *Store) Set(mediaID string, status media.FetchStatus) {
	s.log.Trace().Str("media_id", mediaID).Stringer("status", status).Msg("Status changed")
	s.entry(mediaID).publish(status)
}

// FetchStatus streams the status of ref, starting with the current one.
func (s *Store) FetchStatus(ctx context.Context, ref media.Ref) <-chan media.FetchStatus {
	return s.entry(ref.ID).subscribe(ctx)
}

// Subscribers returns the number of live status subscriptions for a media ID.
func (s *Store) Subscribers(mediaID string) int {
	if t, ok := s.entries.Get(mediaID); ok {
		return t.subscribers()
	}
	return 0
}

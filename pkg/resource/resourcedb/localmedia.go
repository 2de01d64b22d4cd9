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


package resourcedb

import (
	"context"
	"time"

	"go.mau.fi/util/dbutil"
)

type LocalMediaQuery struct {
	*dbutil.QueryHelper[*LocalMedia]
}

// LocalMedia is a fully fetched media file in the cache directory.
type LocalMedia struct {
	MediaID   string
	Path      string
	MimeType  string
	Size      int64
	FetchedAt time.Time
}

func (lm *LocalMedia) sqlVariables() []any {
	return []any{lm.MediaID, lm.Path, lm.MimeType, lm.Size, lm.FetchedAt.UnixMilli()}
}

func newLocalMedia(_ *dbutil.QueryHelper[*LocalMedia]) *LocalMedia {
	return &LocalMedia{}
}

const (
	getLocalMediaByIDQuery = `
		SELECT media_id, path, mime_type, size, fetched_at FROM local_media WHERE media_id=$1
	`
	getAllLocalMediaQuery = `
		SELECT media_id, path, mime_type, size, fetched_at FROM local_media ORDER BY fetched_at
	`
	upsertLocalMediaQuery = `
		INSERT INTO local_media (media_id, path, mime_type, size, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (media_id) DO UPDATE
			SET path = excluded.path, mime_type = excluded.mime_type, size = excluded.size, fetched_at = excluded.fetched_at
	`
	deleteLocalMediaQuery = `
		DELETE FROM local_media WHERE media_id=$1
	`
)

func (lmq *LocalMediaQuery) GetByID(ctx context.Context, mediaID string) (*LocalMedia, error) {
	return lmq.QueryOne(ctx, getLocalMediaByIDQuery, mediaID)
}

func (lmq *LocalMediaQuery) GetAll(ctx context.Context) ([]*LocalMedia, error) {
	return lmq.QueryMany(ctx, getAllLocalMediaQuery)
}

func (lmq *LocalMediaQuery) Put(ctx context.Context, lm *LocalMedia) error {
	return lmq.Exec(ctx, upsertLocalMediaQuery, lm.sqlVariables()...)
}

func (lmq *LocalMediaQuery) Delete(ctx context.Context, mediaID string) error {
	return lmq.Exec(ctx, deleteLocalMediaQuery, mediaID)
}

func (lm *LocalMedia) Scan(row dbutil.Scannable) (*LocalMedia, error) {
	var fetchedAt int64
	err := row.Scan(&lm.MediaID, &lm.Path, &lm.MimeType, &lm.Size, &fetchedAt)
	if err != nil {
		return nil, err
	}
	lm.FetchedAt = time.UnixMilli(fetchedAt)
	return lm, nil
}

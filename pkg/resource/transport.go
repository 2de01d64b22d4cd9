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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exsync"
	"golang.org/x/sync/semaphore"

	"go.mau.fi/mediastate/pkg/fetch"
	"go.mau.fi/mediastate/pkg/media"
	"go.mau.fi/mediastate/pkg/resource/resourcedb"
)

var (
	ErrTooLarge          = errors.New("media too large")
	ErrUnexpectedContent = errors.New("unexpected media content")
	ErrCancelled         = errors.New("transfer cancelled")
)

type TransportConfig struct {
	BaseURL     string
	CacheDir    string
	MaxParallel int64
	MaxSize     int64
	Timeout     time.Duration
}

type transfer struct {
	once   exsync.ReturnableOnce[*resourcedb.LocalMedia]
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// HTTPTransport downloads media from an HTTP server into a cache directory.
// Each media item has at most one transfer in flight, and callers asking for
// the same item join it.
type HTTPTransport struct {
	cfg    TransportConfig
	client *http.Client
	store  *Store
	index  *resourcedb.LocalMediaQuery
	log    zerolog.Logger

	transfers *exsync.Map[string, *transfer]
	sema      *semaphore.Weighted
}

var _ fetch.Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(cfg TransportConfig, store *Store, index *resourcedb.LocalMediaQuery, log zerolog.Logger) *HTTPTransport {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 3
	}
	return &HTTPTransport{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		store:     store,
		index:     index,
		log:       log.With().Str("component", "transport").Logger(),
		transfers: exsync.NewMap[string, *transfer](),
		sema:      semaphore.NewWeighted(cfg.MaxParallel),
	}
}

// Start begins the transfer of ref in the background, or joins the one that
// is already running. Media that is already local is left alone. The context
// only scopes the caller's interest, it doesn't abort the transfer.
func (ht *HTTPTransport) Start(ctx context.Context, ref media.Ref) error {
	if ref.IsZero() {
		return errors.New("no media to fetch")
	} else if err := ctx.Err(); err != nil {
		return err
	} else if ht.store.Get(ref.ID).State == media.StateLocal {
		return nil
	}
	go func() {
		_, err := ht.Fetch(context.Background(), ref)
		if err != nil && !errors.Is(err, ErrCancelled) {
			ht.log.Warn().Err(err).Str("media_id", ref.ID).Msg("Background fetch failed")
		}
	}()
	return nil
}

// CancelInteractive aborts the transfer of ref if one is running.
func (ht *HTTPTransport) CancelInteractive(ref media.Ref) {
	t, ok := ht.transfers.Get(ref.ID)
	if !ok {
		return
	}
	ht.log.Debug().Str("media_id", ref.ID).Msg("Cancelling transfer")
	t.cancel(ErrCancelled)
}

// Fetch downloads ref and waits for the result. Concurrent calls for the
// same media share a single transfer, and media that is already in the
// cache is returned without downloading it again.
func (ht *HTTPTransport) Fetch(ctx context.Context, ref media.Ref) (*resourcedb.LocalMedia, error) {
	if ht.index != nil {
		lm, err := ht.index.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check index: %w", err)
		} else if lm != nil && verifyLocal(ctx, ht.index, ht.log, lm) {
			if ht.store.Get(ref.ID).State != media.StateLocal {
				ht.store.Set(ref.ID, media.Local())
			}
			return lm, nil
		}
	}
	tctx, cancel := context.WithCancelCause(context.Background())
	t, existing := ht.transfers.GetOrSet(ref.ID, &transfer{ctx: tctx, cancel: cancel})
	if existing {
		cancel(nil)
	}
	resultCh := make(chan struct{})
	var result *resourcedb.LocalMedia
	var err error
	go func() {
		defer close(resultCh)
		result, err = t.once.Do(func() (*resourcedb.LocalMedia, error) {
			defer ht.transfers.Delete(ref.ID)
			defer t.cancel(nil)
			return ht.download(t.ctx, ref)
		})
	}()
	select {
	case <-resultCh:
		return result, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ht *HTTPTransport) mediaURL(ref media.Ref) string {
	return strings.TrimSuffix(ht.cfg.BaseURL, "/") + "/" + url.PathEscape(ref.ID)
}

func (ht *HTTPTransport) download(ctx context.Context, ref media.Ref) (lm *resourcedb.LocalMedia, err error) {
	log := ht.log.With().Str("media_id", ref.ID).Logger()
	kind := ref.Kind.String()
	transfersStarted.WithLabelValues(kind).Inc()
	ht.store.Set(ref.ID, media.Fetching(0, false))
	defer func() {
		if err == nil {
			transfersFinished.WithLabelValues(kind, resultCompleted).Inc()
			ht.store.Set(ref.ID, media.Local())
			return
		}
		if cause := context.Cause(ctx); cause != nil && errors.Is(cause, ErrCancelled) {
			err = ErrCancelled
			transfersFinished.WithLabelValues(kind, resultCancelled).Inc()
		} else {
			transfersFinished.WithLabelValues(kind, resultFailed).Inc()
		}
		ht.store.Set(ref.ID, media.Remote())
	}()

	if err = ht.sema.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer ht.sema.Release(1)
	transfersActive.Inc()
	defer transfersActive.Dec()
	ht.store.Set(ref.ID, media.Fetching(0, true))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ht.mediaURL(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare request: %w", err)
	}
	resp, err := ht.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", ref.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d downloading %s: %s", resp.StatusCode, ref.ID, data)
	}

	total := ref.Size
	if resp.Header.Get("Content-Length") != "" {
		length, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse content length: %w", err)
		}
		total = length
	}
	if ht.cfg.MaxSize > 0 && total > ht.cfg.MaxSize {
		return nil, fmt.Errorf("%w (%d > %d)", ErrTooLarge, total, ht.cfg.MaxSize)
	}

	if err = os.MkdirAll(ht.cfg.CacheDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(ht.cfg.CacheDir, "partial-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	var body io.Reader = resp.Body
	if ht.cfg.MaxSize > 0 {
		body = io.LimitReader(resp.Body, ht.cfg.MaxSize+1)
	}
	pw := &progressWriter{store: ht.store, mediaID: ref.ID, total: total}
	written, err := io.Copy(io.MultiWriter(tmp, pw), body)
	closeErr := tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	} else if closeErr != nil {
		return nil, fmt.Errorf("failed to write cache file: %w", closeErr)
	} else if ht.cfg.MaxSize > 0 && written > ht.cfg.MaxSize {
		return nil, fmt.Errorf("%w (over %d)", ErrTooLarge, ht.cfg.MaxSize)
	}
	transferredBytes.Add(float64(written))

	mime, err := mimetype.DetectFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	if prefix := ref.ExpectedMIMEPrefix(); prefix != "" && !strings.HasPrefix(mime.String(), prefix) {
		return nil, fmt.Errorf("%w: expected %s*, got %s", ErrUnexpectedContent, prefix, mime.String())
	}
	finalPath := filepath.Join(ht.cfg.CacheDir, cacheFileName(ref.ID)+mime.Extension())
	if err = os.Rename(tmp.Name(), finalPath); err != nil {
		return nil, fmt.Errorf("failed to move cache file: %w", err)
	}

	lm = &resourcedb.LocalMedia{
		MediaID:   ref.ID,
		Path:      finalPath,
		MimeType:  mime.String(),
		Size:      written,
		FetchedAt: time.Now(),
	}
	if ht.index != nil {
		if err = ht.index.Put(ctx, lm); err != nil {
			return nil, fmt.Errorf("failed to save media to index: %w", err)
		}
	}
	log.Debug().
		Str("mime_type", lm.MimeType).
		Int64("size", lm.Size).
		Msg("Media fetched")
	return lm, nil
}

func cacheFileName(mediaID string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(url.PathEscape(mediaID))
}

// progressWriter publishes the transfer progress whenever it moves by at
// least a percent.
type progressWriter struct {
	store    *Store
	mediaID  string
	total    int64
	written  int64
	reported float64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	if pw.total <= 0 {
		return len(p), nil
	}
	progress := media.ClampUnit(float64(pw.written) / float64(pw.total))
	if progress-pw.reported >= 0.01 {
		pw.reported = progress
		pw.store.Set(pw.mediaID, media.Fetching(progress, true))
	}
	return len(p), nil
}

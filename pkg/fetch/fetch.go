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

package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"go.mau.fi/mediastate/pkg/media"
)

var ErrStartFailed = errors.New("failed to start fetch")

// Transport performs the actual byte transfers.
type Transport interface {
	// Start begins (or joins) the transfer of the given media. The context
	// scopes the caller's interest: cancelling it stops local observation,
	// but doesn't necessarily abort a transfer that's already running.
	Start(ctx context.Context, ref media.Ref) error
	// CancelInteractive abandons the transfer of the given media. It's what
	// the user pressing "stop download" maps to.
	CancelInteractive(ref media.Ref)
}

// Controller tracks at most one live fetch handle for a single attachment
// instance. It is not safe for concurrent use and is meant to be driven from
// the presentation queue.
type Controller struct {
	transport Transport
	log       zerolog.Logger

	ref       media.Ref
	cancel    context.CancelFunc
	abandoned bool
}

func NewController(transport Transport, log zerolog.Logger) *Controller {
	return &Controller{
		transport: transport,
		log:       log.With().Str("component", "fetch").Logger(),
	}
}

// Start cancels the live handle, if any, and starts observing a new fetch of
// ref. Redundant starts for media that is already local or in flight are
// left to the transport to short-circuit.
func (c *Controller) Start(ref media.Ref) error {
	c.Cancel()
	ctx, cancel := context.WithCancel(context.Background())
	c.ref = ref
	c.abandoned = false
	if err := c.transport.Start(ctx, ref); err != nil {
		cancel()
		c.log.Warn().Err(err).Str("media_id", ref.ID).Msg("Failed to start fetch")
		return fmt.Errorf("%w %s: %w", ErrStartFailed, ref.ID, err)
	}
	c.cancel = cancel
	c.log.Trace().Str("media_id", ref.ID).Msg("Started fetch")
	return nil
}

// Cancel drops the live handle. Calling it without a live handle is a no-op.
func (c *Controller) Cancel() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.log.Trace().Str("media_id", c.ref.ID).Msg("Cancelled fetch handle")
}

// CancelTransfer asks the transport to abandon the transfer of the bound
// media. Repeated calls before the next Start or Bind are no-ops.
func (c *Controller) CancelTransfer() {
	if c.ref.IsZero() || c.abandoned {
		return
	}
	c.abandoned = true
	c.transport.CancelInteractive(c.ref)
	c.log.Debug().Str("media_id", c.ref.ID).Msg("Requested transfer cancellation")
}

// Bind drops the live handle and makes ref the media that CancelTransfer
// applies to, without starting a fetch.
func (c *Controller) Bind(ref media.Ref) {
	c.Cancel()
	c.ref = ref
	c.abandoned = false
}

// Reset drops the live handle and forgets the bound media.
func (c *Controller) Reset() {
	c.Bind(media.Ref{})
}

func (c *Controller) Live() bool {
	return c.cancel != nil
}

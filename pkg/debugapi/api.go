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


// Package debugapi exposes the status store over HTTP for inspection.
package debugapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"go.mau.fi/mediastate/pkg/media"
)

const SecWebSocketProtocol = "fi.mau.mediastate"

// StatusStore is the part of the resource store the API reads from.
type StatusStore interface {
	Get(mediaID string) media.FetchStatus
	FetchStatus(ctx context.Context, ref media.Ref) <-chan media.FetchStatus
	Subscribers(mediaID string) int
}

// Transfers is the part of the transport the API controls.
type Transfers interface {
	Start(ctx context.Context, ref media.Ref) error
	CancelInteractive(ref media.Ref)
}

type API struct {
	store        StatusStore
	transfers    Transfers
	sharedSecret string
	log          zerolog.Logger

	Router *mux.Router
}

func New(sharedSecret string, store StatusStore, transfers Transfers, log zerolog.Logger) *API {
	api := &API{
		store:        store,
		transfers:    transfers,
		sharedSecret: sharedSecret,
		log:          log.With().Str("component", "debug api").Logger(),
		Router:       mux.NewRouter(),
	}
	api.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r := api.Router.PathPrefix("/v1").Subrouter()
	r.Use(hlog.NewHandler(api.log))
	r.Use(api.authMiddleware)
	r.HandleFunc("/status/{mediaID}", api.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/status/{mediaID}/fetch", api.startFetch).Methods(http.MethodPost)
	r.HandleFunc("/status/{mediaID}/cancel", api.cancelFetch).Methods(http.MethodPost)
	r.HandleFunc("/status/{mediaID}/ws", api.streamStatus).Methods(http.MethodGet)
	return api
}

// Serve listens on addr until ctx is done.
func (api *API) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	api.log.Info().Str("address", addr).Msg("Starting debug API")
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func jsonResponse(w http.ResponseWriter, status int, response any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

type Error struct {
	Error   string `json:"error"`
	ErrCode string `json:"errcode"`
}

type StatusResponse struct {
	MediaID     string  `json:"media_id"`
	State       string  `json:"state"`
	Progress    float64 `json:"progress"`
	IsActive    bool    `json:"is_active"`
	Subscribers int     `json:"subscribers"`
}

func (api *API) statusResponse(mediaID string, status media.FetchStatus) StatusResponse {
	return StatusResponse{
		MediaID:     mediaID,
		State:       status.State.String(),
		Progress:    status.Progress,
		IsActive:    status.IsActive,
		Subscribers: api.store.Subscribers(mediaID),
	}
}

// Wrapped http.ResponseWriter to capture the status code
type responseWrap struct {
	http.ResponseWriter
	statusCode int
}

var _ http.Hijacker = (*responseWrap)(nil)

func (rw *responseWrap) WriteHeader(statusCode int) {
	rw.ResponseWriter.WriteHeader(statusCode)
	rw.statusCode = statusCode
}

func (rw *responseWrap) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (api *API) authMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")

		// Browsers can't set headers on websocket requests
		if auth == "" && strings.HasSuffix(r.URL.Path, "/ws") {
			authParts := strings.Split(r.Header.Get("Sec-WebSocket-Protocol"), ",")
			for _, part := range authParts {
				part = strings.TrimSpace(part)
				if strings.HasPrefix(part, SecWebSocketProtocol+"-") {
					auth = part[len(SecWebSocketProtocol+"-"):]
					break
				}
			}
		} else if strings.HasPrefix(auth, "Bearer ") {
			auth = auth[len("Bearer "):]
		}

		if api.sharedSecret == "" || auth != api.sharedSecret {
			jsonResponse(w, http.StatusForbidden, Error{
				Error:   "Invalid auth token",
				ErrCode: "M_FORBIDDEN",
			})
			return
		}

		start := time.Now()
		wWrap := &responseWrap{w, http.StatusOK}
		h.ServeHTTP(wWrap, r)
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status_code", wWrap.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Handled debug API request")
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	Subprotocols: []string{SecWebSocketProtocol},
}

func (api *API) getStatus(w http.ResponseWriter, r *http.Request) {
	mediaID := mux.Vars(r)["mediaID"]
	jsonResponse(w, http.StatusOK, api.statusResponse(mediaID, api.store.Get(mediaID)))
}

func (api *API) startFetch(w http.ResponseWriter, r *http.Request) {
	mediaID := mux.Vars(r)["mediaID"]
	kind := media.KindImage
	if r.URL.Query().Get("kind") == "file" {
		kind = media.KindFile
	}
	err := api.transfers.Start(r.Context(), media.Ref{ID: mediaID, Kind: kind})
	if err != nil {
		hlog.FromRequest(r).Err(err).Str("media_id", mediaID).Msg("Failed to start fetch")
		jsonResponse(w, http.StatusInternalServerError, Error{
			Error:   err.Error(),
			ErrCode: "FETCH_FAILED",
		})
		return
	}
	jsonResponse(w, http.StatusAccepted, api.statusResponse(mediaID, api.store.Get(mediaID)))
}

func (api *API) cancelFetch(w http.ResponseWriter, r *http.Request) {
	mediaID := mux.Vars(r)["mediaID"]
	api.transfers.CancelInteractive(media.Ref{ID: mediaID})
	jsonResponse(w, http.StatusAccepted, api.statusResponse(mediaID, api.store.Get(mediaID)))
}

func (api *API) streamStatus(w http.ResponseWriter, r *http.Request) {
	mediaID := mux.Vars(r)["mediaID"]
	log := hlog.FromRequest(r).With().Str("media_id", mediaID).Logger()
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Err(err).Msg("Failed to upgrade connection to websocket")
		return
	}
	defer func() {
		err := c.Close()
		if err != nil {
			log.Debug().Err(err).Msg("Error closing websocket")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// Read everything so the close handler runs
		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				cancel()
				break
			}
		}
	}()
	c.SetCloseHandler(func(code int, text string) error {
		log.Debug().Int("code", code).Msg("Status websocket closed")
		cancel()
		return nil
	})

	statuses := api.store.FetchStatus(ctx, media.Ref{ID: mediaID})
	for status := range statuses {
		err = c.WriteJSON(api.statusResponse(mediaID, status))
		if err != nil {
			log.Debug().Err(err).Msg("Failed to write status to websocket")
			return
		}
	}
}

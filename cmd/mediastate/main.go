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


package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	flag "maunium.net/go/mauflag"

	"go.mau.fi/mediastate/config"
	"go.mau.fi/mediastate/pkg/attachment"
	"go.mau.fi/mediastate/pkg/debugapi"
	"go.mau.fi/mediastate/pkg/decoration"
	"go.mau.fi/mediastate/pkg/mainqueue"
	"go.mau.fi/mediastate/pkg/media"
	"go.mau.fi/mediastate/pkg/resource"
	"go.mau.fi/mediastate/pkg/resource/resourcedb"
	"go.mau.fi/mediastate/version"
)

var configPath = flag.MakeFull("c", "config", "The path to your config file.", "config.yaml").String()
var generateConfig = flag.MakeFull("g", "generate-config", "Write the example config to the config path and exit.", "false").Bool()
var forceGenerate = flag.MakeFull("f", "force", "Overwrite an existing config file when generating.", "false").Bool()
var wantVersion = flag.MakeFull("v", "version", "View version and exit.", "false").Bool()
var noConsole = flag.MakeFull("n", "no-console", "Don't read commands from stdin.", "false").Bool()
var wantHelp, _ = flag.MakeHelpFlag()

func main() {
	flag.SetHelpTitles(
		"mediastate - Inline media attachment state for chat clients.",
		"mediastate [-hvgfn] [-c <path>]",
	)
	err := flag.Parse()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		flag.PrintHelp()
		os.Exit(10)
	} else if *wantHelp {
		flag.PrintHelp()
		os.Exit(0)
	} else if *wantVersion {
		fmt.Println(version.Name, version.String())
		os.Exit(0)
	} else if *generateConfig {
		if err = config.WriteExample(*configPath, *forceGenerate); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "Failed to write example config:", err)
			os.Exit(11)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(11)
	}
	log, err := cfg.CreateLogger()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(12)
	}
	log.Info().
		Str("version", version.String()).
		Msg("Initializing mediastate")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err = run(ctx, cfg, *log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run")
	}
	log.Info().Msg("Shutting down")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	rawDB, err := cfg.CreateDatabase(log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer rawDB.Close()
	db := resourcedb.New(rawDB, log.With().Str("db_section", "resource").Logger())
	if err = db.Upgrade(ctx); err != nil {
		return fmt.Errorf("failed to upgrade database: %w", err)
	}

	store := resource.NewStore(log)
	if err = store.LoadLocal(ctx, db.LocalMedia); err != nil {
		return fmt.Errorf("failed to load local media: %w", err)
	}
	pending := resource.NewPendingMessages()
	transport := resource.NewHTTPTransport(cfg.TransportConfig(), store, db.LocalMedia, log)

	if cfg.DebugAPI.Enabled() {
		api := debugapi.New(cfg.DebugAPI.SharedSecret, store, transport, log)
		go func() {
			if err := api.Serve(ctx, cfg.DebugAPI.Listen); err != nil {
				log.Err(err).Msg("Debug API stopped")
			}
		}()
	}

	// The queue outlives ctx so the controller can be closed on it.
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	queue := mainqueue.NewSerial(log)
	go queue.Run(queueCtx)
	ctrl := attachment.New(attachment.Params{
		Queue:        queue,
		Source:       &resource.Source{Store: store, Pending: pending},
		Transport:    transport,
		Presenter:    decoration.NewLogPresenter(log, queue),
		Gallery:      &logGallery{log: log.With().Str("component", "gallery").Logger()},
		FadeDuration: cfg.Attachment.FadeDuration,
		Log:          log,
	})
	defer func() {
		queue.Post(ctrl.Close)
		syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue.Sync(syncCtx); err != nil {
			log.Warn().Err(err).Msg("Main queue didn't drain before shutdown")
		}
	}()

	if *noConsole {
		<-ctx.Done()
		return nil
	}
	c := &console{
		ctrl:    ctrl,
		queue:   queue,
		store:   store,
		pending: pending,
		out:     os.Stdout,
		log:     log.With().Str("component", "console").Logger(),
	}
	return c.run(ctx, os.Stdin)
}

type logGallery struct {
	log zerolog.Logger
}

func (lg *logGallery) Open(ref media.Ref, msg media.Message, mode attachment.DisplayMode) {
	lg.log.Info().
		Str("media_id", ref.ID).
		Str("message_id", msg.ID).
		Stringer("mode", mode).
		Msg("Opening gallery")
}

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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"go.mau.fi/mediastate/pkg/attachment"
	"go.mau.fi/mediastate/pkg/mainqueue"
	"go.mau.fi/mediastate/pkg/media"
	"go.mau.fi/mediastate/pkg/resource"
)

const consoleHelp = `Commands:
 * bind <media ID> <image|video|file> [secret] [unsent] [webpage] [self-destruct=<duration>] [size=<bytes>] [duration=<duration>]
 * unbind, close, cancel, fetch, stop, open
 * status - show the state of the bound attachment
 * set <remote|fetching|local> [progress] - override the fetch status of the bound media
 * send <progress>, sent - change the upload progress of the bound message
 * help, quit`

var errQuit = errors.New("quit")

// console drives a single attachment controller from text commands.
type console struct {
	ctrl    *attachment.Controller
	queue   *mainqueue.Serial
	store   *resource.Store
	pending *resource.PendingMessages
	out     io.Writer
	log     zerolog.Logger
	clock   func() time.Time

	ref media.Ref
	msg media.Message
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	_, _ = fmt.Fprint(c.out, "> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := c.handle(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			} else if err != nil {
				_, _ = fmt.Fprintln(c.out, "Error:", err)
			}
			_, _ = fmt.Fprint(c.out, "> ")
		}
	}
}

// onQueue runs fn on the presentation queue and waits for it.
func (c *console) onQueue(ctx context.Context, fn func()) error {
	c.queue.Post(fn)
	return c.queue.Sync(ctx)
}

func (c *console) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now()
}

func (c *console) handle(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("failed to parse command: %w", err)
	} else if len(args) == 0 {
		return nil
	}
	command := strings.ToLower(args[0])
	args = args[1:]
	c.log.Debug().Str("command", command).Strs("args", args).Msg("Handling console command")
	switch command {
	case "help":
		_, _ = fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "quit", "exit":
		return errQuit
	case "bind":
		ref, msg, err := c.parseBind(args)
		if err != nil {
			return err
		}
		c.ref, c.msg = ref, msg
		if msg.Flags.Has(media.FlagUnsent) {
			c.pending.Set(msg.ID, 0)
		}
		return c.onQueue(ctx, func() { c.ctrl.Bind(ref, msg) })
	case "unbind":
		c.ref, c.msg = media.Ref{}, media.Message{}
		return c.onQueue(ctx, c.ctrl.Unbind)
	case "close":
		c.ref, c.msg = media.Ref{}, media.Message{}
		return c.onQueue(ctx, c.ctrl.Close)
	case "cancel":
		return c.onQueue(ctx, c.ctrl.Cancel)
	case "fetch":
		return c.onQueue(ctx, c.ctrl.Fetch)
	case "stop":
		return c.onQueue(ctx, c.ctrl.CancelFetching)
	case "open":
		return c.onQueue(ctx, c.ctrl.Open)
	case "status":
		var out string
		err = c.onQueue(ctx, func() { out = c.describe() })
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(c.out, out)
		return nil
	case "set":
		status, err := parseStatus(args)
		if err != nil {
			return err
		} else if c.ref.IsZero() {
			return errors.New("nothing bound")
		}
		c.store.Set(c.ref.ID, status)
		return nil
	case "send":
		if len(args) != 1 {
			return errors.New("usage: send <progress>")
		} else if c.msg.ID == "" {
			return errors.New("nothing bound")
		}
		progress, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid progress: %w", err)
		}
		c.pending.Set(c.msg.ID, progress)
		return nil
	case "sent":
		if c.msg.ID == "" {
			return errors.New("nothing bound")
		}
		c.pending.Clear(c.msg.ID)
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", command)
	}
}

func (c *console) describe() string {
	ref := c.ctrl.Ref()
	if ref.IsZero() {
		return fmt.Sprintf("phase=%s", c.ctrl.Phase())
	}
	statusStr := "none"
	if status, ok := c.ctrl.Status(); ok {
		statusStr = status.String()
	}
	return fmt.Sprintf("media=%s phase=%s status=%s decoration=%s", ref.ID, c.ctrl.Phase(), statusStr, c.ctrl.Decoration())
}

func (c *console) parseBind(args []string) (media.Ref, media.Message, error) {
	if len(args) < 2 {
		return media.Ref{}, media.Message{}, errors.New("usage: bind <media ID> <image|video|file> [options...]")
	}
	ref := media.Ref{ID: args[0]}
	switch strings.ToLower(args[1]) {
	case "image":
		ref.Kind = media.KindImage
	case "video":
		ref = media.NewVideo(args[0], media.Dimensions{}, 0, 0)
	case "file":
		ref.Kind = media.KindFile
	default:
		return media.Ref{}, media.Message{}, fmt.Errorf("unknown media kind %q", args[1])
	}
	msg := media.Message{ID: "msg-" + args[0]}
	for _, opt := range args[2:] {
		key, value, _ := strings.Cut(opt, "=")
		switch strings.ToLower(key) {
		case "secret":
			msg.Secret = true
		case "unsent":
			msg.Flags |= media.FlagUnsent
		case "webpage":
			msg.IsWebpage = true
		case "self-destruct":
			timeout, err := time.ParseDuration(value)
			if err != nil {
				return media.Ref{}, media.Message{}, fmt.Errorf("invalid self-destruct timeout: %w", err)
			}
			msg.SelfDestruct = &media.SelfDestruct{CountdownBegin: c.now(), Timeout: timeout}
		case "size":
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return media.Ref{}, media.Message{}, fmt.Errorf("invalid size: %w", err)
			}
			ref.Size = size
		case "duration":
			duration, err := time.ParseDuration(value)
			if err != nil {
				return media.Ref{}, media.Message{}, fmt.Errorf("invalid duration: %w", err)
			}
			ref.Duration = duration
		default:
			return media.Ref{}, media.Message{}, fmt.Errorf("unknown option %q", opt)
		}
	}
	return ref, msg, nil
}

func parseStatus(args []string) (media.FetchStatus, error) {
	if len(args) == 0 {
		return media.FetchStatus{}, errors.New("usage: set <remote|fetching|local> [progress]")
	}
	switch strings.ToLower(args[0]) {
	case "remote":
		return media.Remote(), nil
	case "local":
		return media.Local(), nil
	case "fetching":
		progress := 0.0
		if len(args) > 1 {
			var err error
			progress, err = strconv.ParseFloat(args[1], 64)
			if err != nil {
				return media.FetchStatus{}, fmt.Errorf("invalid progress: %w", err)
			}
		}
		return media.Fetching(progress, true), nil
	default:
		return media.FetchStatus{}, fmt.Errorf("unknown state %q", args[0])
	}
}

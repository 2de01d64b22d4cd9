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

// Package media contains the data model shared by the attachment state
// machine and its collaborators.
package media

import (
	"fmt"
	"strings"
	"time"
)

type Kind int

const (
	KindImage Kind = iota // still image with one or more representations
	KindFile              // file attachment, possibly a video
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) IsZero() bool {
	return d.Width == 0 && d.Height == 0
}

// Representation is one size variant of an image.
type Representation struct {
	Dimensions
	ResourceID string `json:"resource_id"`
}

// Ref identifies the attachment bound to a controller. It is treated as
// immutable: rebinding replaces the whole value.
type Ref struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	Representations []Representation `json:"representations,omitempty"`

	Dimensions Dimensions    `json:"dimensions"`
	Duration   time.Duration `json:"duration,omitempty"`
	Size       int64         `json:"size,omitempty"`
	MimeType   string        `json:"mime_type,omitempty"`
	IsVideo    bool          `json:"is_video,omitempty"`
}

func NewImage(id string, representations ...Representation) Ref {
	return Ref{
		ID:              id,
		Kind:            KindImage,
		Representations: representations,
	}
}

func NewVideo(id string, dimensions Dimensions, duration time.Duration, size int64) Ref {
	return Ref{
		ID:         id,
		Kind:       KindFile,
		Dimensions: dimensions,
		Duration:   duration,
		Size:       size,
		IsVideo:    true,
	}
}

func (r Ref) IsZero() bool {
	return r.ID == ""
}

func (r Ref) IsStillImage() bool {
	return r.Kind == KindImage
}

func (r Ref) IsVideoFile() bool {
	return r.Kind == KindFile && r.IsVideo
}

// LargestRepresentation returns the representation with the biggest area,
// which is the one fetched for display.
func (r Ref) LargestRepresentation() (Representation, bool) {
	if len(r.Representations) == 0 {
		return Representation{}, false
	}
	best := r.Representations[0]
	for _, rep := range r.Representations[1:] {
		if rep.Width*rep.Height > best.Width*best.Height {
			best = rep
		}
	}
	return best, true
}

// ExpectedMIMEPrefix is the top-level MIME type the downloaded bytes must
// have for this ref, or an empty string if anything is acceptable.
func (r Ref) ExpectedMIMEPrefix() string {
	switch {
	case r.Kind == KindImage:
		return "image/"
	case r.IsVideo:
		return "video/"
	case r.MimeType != "":
		top, _, _ := strings.Cut(r.MimeType, "/")
		return top + "/"
	default:
		return ""
	}
}

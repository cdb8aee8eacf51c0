/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package media discovers the natural bounds of the asset being edited:
// pixel dimensions for images and duration for video. Nothing here decodes
// pixel data; only headers and container metadata are read.
package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"contentstudio/internal/region"
)

// ErrLoad marks every failure to fetch or decode media metadata.
var ErrLoad = errors.New("media: load failed")

// ImageInfo is the decoded image header.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Bounds returns the natural crop bounds of the image.
func (i ImageInfo) Bounds() region.Bounds {
	return region.Bounds{Width: float64(i.Width), Height: float64(i.Height)}
}

// DecodeImageConfig reads just enough of r to learn the image size.
// PNG, JPEG, GIF, BMP, TIFF and WebP are recognised.
func DecodeImageConfig(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: decode image header: %v", ErrLoad, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty image %dx%d", ErrLoad, cfg.Width, cfg.Height)
	}
	return ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// LoadImage opens path and decodes its header.
func LoadImage(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer func() { _ = f.Close() }()
	return DecodeImageConfig(f)
}

// Package compose derives aspect-ratio variants from a base image and
// stamps them with the brand mark and localized message.
package compose

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

type Variant struct {
	Tag    string `json:"aspect_ratio"`
	Dir    string `json:"directory"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// FileName is the image name inside the variant directory.
func (v Variant) FileName() string {
	return "image_" + v.Dir + ".png"
}

func (v Variant) ArtifactName() string {
	return "response_artifact_" + v.Dir + ".json"
}

var variants = []Variant{
	{Tag: "1:1", Dir: "1x1", Width: 1024, Height: 1024},
	{Tag: "16:9", Dir: "16x9", Width: 1024, Height: 576},
	{Tag: "9:16", Dir: "9x16", Width: 576, Height: 1024},
}

// Variants returns the three mandatory renditions in output order.
func Variants() []Variant {
	out := make([]Variant, len(variants))
	copy(out, variants)
	return out
}

// SmartResizeAndCrop center-crops src to the target aspect ratio and then
// resamples it to exactly width x height with a Lanczos filter.
func SmartResizeAndCrop(src image.Image, width, height int) *image.NRGBA {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 || width <= 0 || height <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	}

	current := float64(sw) / float64(sh)
	target := float64(width) / float64(height)

	crop := image.Rect(0, 0, sw, sh)
	switch {
	case current > target:
		cw := int(float64(sh) * target)
		left := (sw - cw) / 2
		crop = image.Rect(left, 0, left+cw, sh)
	case current < target:
		ch := int(float64(sw) / target)
		top := (sh - ch) / 2
		crop = image.Rect(0, top, sw, top+ch)
	}

	cropped := imaging.Crop(src, crop.Add(b.Min))
	return imaging.Resize(cropped, width, height, imaging.Lanczos)
}

// Decode reads provider output. PNG, JPEG and WebP are accepted.
func Decode(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode base image: %w", err)
	}
	return img, nil
}

// WriteVariant crops base to v and saves it as PNG at path.
func WriteVariant(base image.Image, v Variant, path string) error {
	if err := imaging.Save(SmartResizeAndCrop(base, v.Width, v.Height), path); err != nil {
		return fmt.Errorf("save %s variant: %w", v.Tag, err)
	}
	return nil
}

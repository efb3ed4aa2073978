package preprocess

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
)

var (
	ErrTooLarge        = errors.New("image exceeds size ceiling")
	ErrUnsupportedType = errors.New("only image/jpeg and image/png are allowed")
	ErrChannels        = errors.New("image must have 3 channels")
	ErrDimensions      = errors.New("image dimensions exceed pixel ceiling")
	ErrDecode          = errors.New("failed to decode image")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// AllowedType reports whether the declared MIME type may be decoded at all.
func AllowedType(mime string) bool {
	return allowedTypes[mime]
}

// Limits bounds an upload before any pixel data is decoded.
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

// Validate checks an uploaded buffer before any pixel decoding happens: the
// size ceiling and the declared MIME type, then the dimensions and channel
// count read from the image header.
func Validate(buf []byte, mime string, limits Limits) error {
	if int64(len(buf)) > limits.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(buf), limits.MaxBytes)
	}
	if !AllowedType(mime) {
		return fmt.Errorf("%w: got %q", ErrUnsupportedType, mime)
	}

	hdr, err := readHeader(buf)
	if err != nil {
		return err
	}
	if pixels := int64(hdr.Width) * int64(hdr.Height); pixels > limits.MaxPixels {
		return fmt.Errorf("%w: %dx%d > %d pixels", ErrDimensions, hdr.Width, hdr.Height, limits.MaxPixels)
	}
	if hdr.channels != 3 {
		return fmt.Errorf("%w: %s has %d", ErrChannels, hdr.format, hdr.channels)
	}
	return nil
}

// Channels reads only the image header and reports how many color channels
// the encoded image carries.
func Channels(buf []byte) (int, string, error) {
	hdr, err := readHeader(buf)
	if err != nil {
		return 0, "", err
	}
	return hdr.channels, hdr.format, nil
}

type header struct {
	image.Config
	format   string
	channels int
}

func readHeader(buf []byte) (header, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return header{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	channels := channelCount(cfg.ColorModel)
	// The png header decoder stops before tRNS, so a transparency chunk adds
	// the alpha channel here.
	if format == "png" && channels > 0 && pngTransparency(buf) {
		channels++
	}
	return header{Config: cfg, format: format, channels: channels}, nil
}

// channelCount maps the decoder's color model to the stored channel count.
// PNG truecolor decodes to RGBA models, PNG with alpha to NRGBA models.
// Paletted images count as 3 since the palette expands to RGB.
func channelCount(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.YCbCrModel, color.RGBAModel, color.RGBA64Model:
		return 3
	case color.NRGBAModel, color.NRGBA64Model, color.CMYKModel:
		return 4
	}
	if _, ok := m.(color.Palette); ok {
		return 3
	}
	return 0
}

const pngSignature = "\x89PNG\r\n\x1a\n"

// pngTransparency reports whether a tRNS chunk appears before the image data.
// Color types that already carry alpha never have one.
func pngTransparency(buf []byte) bool {
	if !bytes.HasPrefix(buf, []byte(pngSignature)) {
		return false
	}
	for off := len(pngSignature); off+8 <= len(buf); {
		length := int64(binary.BigEndian.Uint32(buf[off : off+4]))
		switch string(buf[off+4 : off+8]) {
		case "tRNS":
			return true
		case "IDAT", "IEND":
			return false
		}
		next := int64(off) + 8 + length + 4
		if next > int64(len(buf)) {
			return false
		}
		off = int(next)
	}
	return false
}

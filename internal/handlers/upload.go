package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/Brownie44l1/cancer-api/internal/prediction"
	"github.com/Brownie44l1/cancer-api/internal/preprocess"
)

const imageField = "image"

// readImage streams the multipart body and returns the first "image" part.
// The ceiling applies to that part alone and is enforced while reading, so an
// oversize upload is never buffered in full. Other parts are discarded
// unread.
func readImage(r *http.Request, maxBytes int64) (prediction.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return prediction.Upload{}, fmt.Errorf("%w: %w", prediction.ErrValidation, err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return prediction.Upload{}, fmt.Errorf("%w: no %q file in form", prediction.ErrValidation, imageField)
		}
		if err != nil {
			return prediction.Upload{}, fmt.Errorf("%w: %w", prediction.ErrValidation, err)
		}
		if part.FormName() != imageField {
			part.Close()
			continue
		}
		defer part.Close()

		contentType := partType(part.Header.Get("Content-Type"))
		if !preprocess.AllowedType(contentType) {
			return prediction.Upload{}, fmt.Errorf("%w: %w: got %q", prediction.ErrValidation, preprocess.ErrUnsupportedType, contentType)
		}

		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		if err != nil {
			return prediction.Upload{}, fmt.Errorf("%w: %w", prediction.ErrValidation, err)
		}
		if int64(len(data)) > maxBytes {
			return prediction.Upload{}, fmt.Errorf("%w: file exceeds %d bytes", prediction.ErrPayloadTooLarge, maxBytes)
		}

		return prediction.Upload{
			Data:        data,
			ContentType: contentType,
			Filename:    part.FileName(),
		}, nil
	}
}

func partType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return header
	}
	return mediaType
}

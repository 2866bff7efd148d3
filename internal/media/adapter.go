// ==============================================================================
// MEDIA CAPTURE ADAPTER - internal/media/adapter.go
// ==============================================================================
// Turns raw user-provided files and camera frames into portable encoded
// payloads (data URIs) the intake flow can carry around.
// ==============================================================================

package media

import (
	"encoding/base64"
	"net/http"
	"strings"

	"kycflow/pkg/domain"
	kycerrors "kycflow/pkg/errors"
	"kycflow/pkg/logger"
)

// allowedDocumentTypes mirrors the intake form contract: JPG, PNG or PDF.
var allowedDocumentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Adapter encodes uploaded documents and camera frames. It is deliberately
// ignorant of where the bytes came from (file picker, camera API, test fixture).
type Adapter struct {
	maxDocumentBytes int64
	logger           logger.Logger
}

func NewAdapter(maxDocumentBytes int64, log logger.Logger) *Adapter {
	if maxDocumentBytes <= 0 {
		maxDocumentBytes = 5 << 20 // 5MB, matching the intake form limit
	}
	return &Adapter{
		maxDocumentBytes: maxDocumentBytes,
		logger:           log,
	}
}

// EncodeDocument validates an uploaded identity document and returns it as a
// data URI. The content type is sniffed from the payload rather than trusted
// from the file name.
func (a *Adapter) EncodeDocument(fileName string, data []byte) (domain.EncodedMedia, error) {
	if len(data) == 0 {
		return "", kycerrors.ErrEmptyFile
	}
	if int64(len(data)) > a.maxDocumentBytes {
		a.logger.Warn("Document upload rejected: too large", logger.Fields{
			"file_name": fileName,
			"size":      len(data),
			"max_bytes": a.maxDocumentBytes,
		})
		return "", kycerrors.ErrFileTooLarge
	}

	contentType := sniffContentType(data)
	if !allowedDocumentTypes[contentType] {
		a.logger.Warn("Document upload rejected: unsupported type", logger.Fields{
			"file_name":    fileName,
			"content_type": contentType,
		})
		return "", kycerrors.ErrFileTypeNotAllowed
	}

	return encodeDataURI(contentType, data), nil
}

// EncodeFrame converts a raw camera frame into a JPEG data URI. Frames arrive
// straight from the capture surface, so encoding is synchronous and unconditional.
func (a *Adapter) EncodeFrame(frame []byte) (domain.EncodedMedia, error) {
	if len(frame) == 0 {
		return "", kycerrors.ErrEmptyFile
	}
	// Browsers hand frames over as data URIs already; pass those through untouched.
	if s := string(frame); strings.HasPrefix(s, "data:") {
		return domain.EncodedMedia(s), nil
	}
	return encodeDataURI("image/jpeg", frame), nil
}

func sniffContentType(data []byte) string {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	contentType := http.DetectContentType(sample)
	// DetectContentType appends charset parameters for text types; strip them.
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return contentType
}

func encodeDataURI(contentType string, data []byte) domain.EncodedMedia {
	return domain.EncodedMedia("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

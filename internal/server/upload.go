package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/common"
	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
)

// Rejection reasons reported to metrics.
const (
	rejectMissing   = "missing"
	rejectEmptyName = "empty_name"
	rejectExtension = "extension"
	rejectTooLarge  = "too_large"
	rejectSave      = "save"
)

// upload is a request-scoped copy of the uploaded file.
type upload struct {
	doc  extract.Document
	path string
}

// receiveUpload validates the "file" part and stores it under the upload dir
// with a random name. The caller must call s.release on success.
func (s *Server) receiveUpload(c *gin.Context) (*upload, *common.AppError) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			s.metrics.RejectUpload(rejectTooLarge)
			return nil, common.NewAppError(common.CodeTooLarge, "File too large", err)
		}
		s.metrics.RejectUpload(rejectMissing)
		return nil, common.NewAppError(common.CodeInvalidInput, "No file part", err)
	}
	if fh.Filename == "" {
		s.metrics.RejectUpload(rejectEmptyName)
		return nil, common.InvalidInput("No selected file")
	}
	ext := constants.NormalizeExt(filepath.Ext(fh.Filename))
	if !constants.IsAllowedExt(ext, s.allowed) {
		s.metrics.RejectUpload(rejectExtension)
		return nil, common.NewAppError(common.CodeUnsupportedFormat, "File type not allowed", nil)
	}

	dst := filepath.Join(s.cfg.Server.UploadDir, uuid.NewString()+"."+ext)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		s.metrics.RejectUpload(rejectSave)
		_ = os.Remove(dst)
		return nil, common.NewAppError(common.CodeInternal, "Failed to save file", err)
	}
	s.logger.Debug("upload stored", "filename", fh.Filename, "path", dst, "size", fh.Size, "request_id", GetRequestID(c))

	return &upload{
		doc: extract.Document{
			Name:   filepath.Base(fh.Filename),
			Path:   dst,
			Format: constants.MapExtToFormat(ext),
		},
		path: dst,
	}, nil
}

// release deletes the stored upload.
func (s *Server) release(u *upload) {
	if err := os.Remove(u.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove upload failed", "path", u.path, "error", err)
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

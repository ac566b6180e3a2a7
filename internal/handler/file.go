package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"slide-extractor/internal/response"
	"slide-extractor/log"
	apperrors "slide-extractor/pkg/errors"
)

// UploadFile stores videos under the uploads root and returns local:
// references usable as a task url.
func (h Handler) UploadFile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Failed to read upload", err.Error(), err))
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "No file uploaded", "", nil))
		return
	}

	uploadRoot := preferredUploadRoot()
	if err := os.MkdirAll(uploadRoot, 0o755); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeFileWriteError, "Failed to create upload dir", err))
		return
	}

	savedFiles := make([]string, 0, len(files))
	for _, file := range files {
		savePath := filepath.Join(uploadRoot, uploadName(file.Filename))
		if err := c.SaveUploadedFile(file, savePath); err != nil {
			log.GetLogger().Error("UploadFile save err", zap.String("file", file.Filename), zap.Error(err))
			response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "Failed to save file", file.Filename, err))
			return
		}
		savedFiles = append(savedFiles, "local:"+savePath)
	}

	log.GetLogger().Info("files uploaded", zap.Strings("paths", savedFiles))
	response.Success(c, gin.H{"file_path": savedFiles})
}

// uploadName keeps the client's base name behind a short random prefix so
// repeated uploads of the same file never collide.
func uploadName(clientName string) string {
	base := filepath.Base(strings.ReplaceAll(clientName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "video"
	}
	return uuid.NewString()[:8] + "_" + base
}

func (h Handler) DownloadFile(c *gin.Context) {
	requestedFile := c.Param("filepath")
	localFilePath, ok := resolveDownloadPath(requestedFile)
	if !ok {
		c.JSON(http.StatusForbidden, response.Response{
			Error: apperrors.CodeInvalidParams,
			Msg:   "Access denied",
		})
		return
	}

	info, err := os.Stat(localFilePath)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, response.Response{
			Error: apperrors.CodeFileNotFound,
			Msg:   apperrors.ErrFileNotFound.Message,
		})
		return
	}
	c.FileAttachment(localFilePath, filepath.Base(localFilePath))
}

package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/candle-backend/internal/errors"
	"github.com/ikkim/candle-backend/internal/middleware"
	"github.com/ikkim/candle-backend/internal/storage"
)

type UploadController struct {
	storage storage.ImagePresigner
}

func NewUploadController(storage storage.ImagePresigner) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type ProductImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignProductImage returns a presigned S3 PUT URL for a product image.
// The client uploads directly and then saves file_url as the image_url.
// POST /api/v1/admin/uploads/product-image
func (ctrl *UploadController) PresignProductImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductImageRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	upload, err := ctrl.storage.PresignProductImage(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			fail(c, apperrors.FieldValidation(apperrors.UploadInvalidFileType, "content_type",
				"Only image files are allowed (JPEG, PNG, GIF, WEBP)"))
			return
		}
		fail(c, &apperrors.AppError{
			Status:  http.StatusInternalServerError,
			Code:    apperrors.UploadFailed,
			Message: "Failed to generate upload URL",
			Err:     err,
		})
		return
	}

	log.Info("Product image upload URL issued", map[string]interface{}{
		"key": upload.Key,
	})

	c.JSON(http.StatusOK, upload)
}

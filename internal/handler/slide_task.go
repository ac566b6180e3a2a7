package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slide-extractor/internal/dto"
	"slide-extractor/internal/response"
	"slide-extractor/log"
	apperrors "slide-extractor/pkg/errors"
)

func (h Handler) StartSlideTask(c *gin.Context) {
	var req dto.StartSlideTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("StartSlideTask ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err.Error(), err))
		return
	}
	log.GetLogger().Info("StartSlideTask received request", zap.String("url", req.Url))

	data, err := h.Service.StartSlideTask(req)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

func (h Handler) GetSlideTask(c *gin.Context) {
	var req dto.GetSlideTaskReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.ErrInvalidParams.Message, err.Error(), err))
		return
	}

	data, err := h.Service.GetTaskStatus(req)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

func (h Handler) GetTaskHistory(c *gin.Context) {
	items, err := h.Service.GetTaskHistory()
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, items)
}

func (h Handler) DeleteTask(c *gin.Context) {
	if err := h.Service.DeleteTask(c.Param("taskId")); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, nil)
}

// RetryTask re-runs a failed or completed task with its stored options.
func (h Handler) RetryTask(c *gin.Context) {
	data, err := h.Service.RetryTask(c.Param("taskId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

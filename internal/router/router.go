package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slide-extractor/internal/handler"
	"slide-extractor/internal/service"
)

func SetupRouter(r *gin.Engine, svc *service.Service) {
	api := r.Group("/api")

	hdl := handler.NewHandler(svc)
	{
		api.POST("/slides/task", hdl.StartSlideTask)
		api.GET("/slides/task", hdl.GetSlideTask)
		api.GET("/slides/history", hdl.GetTaskHistory)
		api.DELETE("/slides/task/:taskId", hdl.DeleteTask)
		api.POST("/slides/task/:taskId/retry", hdl.RetryTask)
		api.POST("/file", hdl.UploadFile)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}

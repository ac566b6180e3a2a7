package handler

import (
	"slide-extractor/internal/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) Handler {
	if svc == nil {
		svc = service.NewService()
	}
	return Handler{Service: svc}
}

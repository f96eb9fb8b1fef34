package paymenthook

import (
	apphttp "memorial_intake_backend/internal/http"
)

// Module wires the payment confirmation webhook route.
type Module struct {
	handler *Handler
}

func NewModule(svc *Service) *Module {
	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "paymenthook"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Hooks.POST("/payments", m.handler.Receive)
}

var _ apphttp.Module = (*Module)(nil)

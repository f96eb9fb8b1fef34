package intake

import (
	apphttp "memorial_intake_backend/internal/http"
)

// Module wires the submission intake HTTP routes.
type Module struct {
	handler *Handler
}

// NewModule builds the intake module around an already-wired Service.
func NewModule(svc *Service) *Module {
	return &Module{handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "intake"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/submissions", m.handler.Submit)
}

var _ apphttp.Module = (*Module)(nil)

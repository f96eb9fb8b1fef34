// Package siteconfig exposes the publishable configuration values the
// static site needs at load time. Nothing secret may ever appear here.
package siteconfig

import (
	"github.com/gin-gonic/gin"

	apphttp "memorial_intake_backend/internal/http"
	"memorial_intake_backend/platform/config"
	"memorial_intake_backend/platform/httpkit"
)

type response struct {
	StripePublishableKey string `json:"stripePublishableKey"`
	MapsAPIKey           string `json:"mapsApiKey"`
}

// Module serves the read-only site configuration endpoint.
type Module struct {
	payload response
}

func NewModule(cfg config.SiteConfig) *Module {
	return &Module{payload: response{
		StripePublishableKey: cfg.GetStripePublishableKey(),
		MapsAPIKey:           cfg.GetMapsAPIKey(),
	}}
}

func (m *Module) Name() string {
	return "siteconfig"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/config", m.handle)
}

func (m *Module) handle(c *gin.Context) {
	httpkit.OK(c, m.payload)
}

var _ apphttp.Module = (*Module)(nil)

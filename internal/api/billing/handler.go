package billing

import (
	"freight-app/config"
	"freight-app/internal/infra/mercadopago"
	"freight-app/internal/infra/openpix"
	"freight-app/internal/recon"
)

// Handler groups the billing endpoints: charge origination per gateway,
// payment history, force-sync and the non-production simulator. Gateway
// clients and settings are injected, never pulled from globals.
type Handler struct {
	cfg     *config.Config
	engine  *recon.Engine
	mp      *mercadopago.Client
	openpix *openpix.Client
}

func NewHandler(cfg *config.Config, engine *recon.Engine, mp *mercadopago.Client, op *openpix.Client) *Handler {
	return &Handler{cfg: cfg, engine: engine, mp: mp, openpix: op}
}

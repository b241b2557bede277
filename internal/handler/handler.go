package handler

import (
	"github.com/leca/file-gateway/internal/config"
	"github.com/leca/file-gateway/internal/source"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Resolver *source.Resolver
	Config   *config.Config
}

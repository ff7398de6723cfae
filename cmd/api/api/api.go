package api

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/onkernel/stillcam/cmd/api/config"
	"github.com/onkernel/stillcam/lib/archive"
	"github.com/onkernel/stillcam/lib/live"
	"github.com/onkernel/stillcam/lib/resources"
)

// ApiService serves the viewer page, snapshots and the MJPEG stream
type ApiService struct {
	Config      *config.Config
	Distributor *live.Distributor
	Repository  *archive.Repository

	indexPage []byte
}

// New creates a new ApiService. It fails if the viewer page cannot be loaded.
func New(
	config *config.Config,
	loader resources.Loader,
	distributor *live.Distributor,
	repository *archive.Repository,
) (*ApiService, error) {
	index, err := loader.Load(resources.IndexPage)
	if err != nil {
		return nil, fmt.Errorf("load index page: %w", err)
	}
	return &ApiService{
		Config:      config,
		Distributor: distributor,
		Repository:  repository,
		indexPage:   index,
	}, nil
}

// Routes mounts the handlers on r. Paths that match nothing get chi's 404.
func (s *ApiService) Routes(r chi.Router) {
	r.Get("/", s.ServeIndex)
	r.Get("/now.jpg*", s.ServeSnapshot)
	r.Get("/videostream.cgi*", s.ServeStream)
	r.Get("/healthz", s.Health)
}

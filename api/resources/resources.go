// FilePath: api/resources/resources.go
package resources

import (
	"net/http"

	"github.com/verdant-labs/greenhub/internal/config"
	"github.com/verdant-labs/greenhub/internal/service"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Greenhouses *GreenhouseHandlers
	Readings    *ReadingHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *service.Service, mqtt config.MQTTConfig) *Resources {
	return &Resources{
		Greenhouses: &GreenhouseHandlers{service: svc, mqtt: mqtt},
		Readings:    &ReadingHandlers{service: svc},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

package bootstrap

import (
	"github.com/lightdream/redismanager/config"
)

// Config is the constraint for application configuration types. Any
// struct embedding config.ServiceConfig satisfies it through promoted
// methods, provided it also defines ApplyDefaults and Validate for its
// own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

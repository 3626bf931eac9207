// Package autoload initializes the global logger on import.
package autoload

import (
	configx "github.com/kritsada/careline/pkg/config"
	logx "github.com/kritsada/careline/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}

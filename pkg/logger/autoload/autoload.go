// Package autoload configures the global logger from the environment as a
// side effect of being imported:
//
//	import _ "github.com/cememirsenyurt/subconscious/pkg/logger/autoload"
package autoload

import (
	"github.com/cememirsenyurt/subconscious/pkg/config"
	logx "github.com/cememirsenyurt/subconscious/pkg/logger"
)

func init() {
	logx.Init(*config.MustNew[logx.Config]("log"))
}

package table

import "go.uber.org/fx"

// Module provides the table service to Fx.
var Module = fx.Provide(NewService)

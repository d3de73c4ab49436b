package orderitem

import "go.uber.org/fx"

// Module provides the order item repository to Fx.
var Module = fx.Provide(NewRepository)

package invoiceaction

import (
	"github.com/smallbiznis/waterworks/internal/invoiceaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoiceaction.service",
	fx.Provide(service.NewService),
)

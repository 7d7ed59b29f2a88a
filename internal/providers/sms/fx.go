package sms

import "go.uber.org/fx"

var Module = fx.Module("providers.sms",
	fx.Provide(NewLogNotifier),
)

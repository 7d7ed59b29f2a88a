package db

import "go.uber.org/fx"

// Module wires the database connection.
var Module = fx.Module("db",
	fx.Provide(New),
)

package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/waterworks/internal/config"
	"github.com/smallbiznis/waterworks/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node) error {
		if err := RunMigrations(conn); err != nil {
			return err
		}
		if cfg.DefaultTenantID != 0 {
			return seed.EnsureTenantAccounts(conn, node, snowflake.ID(cfg.DefaultTenantID))
		}
		return nil
	}),
)

package migration

import (
	"github.com/smallbiznis/tillpoint/internal/config"
	customerdomain "github.com/smallbiznis/tillpoint/internal/customer/domain"
	productdomain "github.com/smallbiznis/tillpoint/internal/product/domain"
	saledomain "github.com/smallbiznis/tillpoint/internal/sale/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Dev and embedded setups run on whatever dialect is
			// configured; gorm derives the same schema from the models.
			return conn.AutoMigrate(
				&customerdomain.Customer{},
				&productdomain.Product{},
				&saledomain.Sale{},
				&saledomain.SaleItem{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)

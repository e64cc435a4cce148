// Package mysql provides the MySQL engine adapter, the gateway's default
// primary engine.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/sqlgate/pkg/adapters/mysql"
package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/sqlgate/pkg/adapter"
)

func init() {
	adapter.Register("mysql", adapter.RolePrimary, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Package postgres provides a PostgreSQL engine adapter for the gateway.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/sqlgate/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/sqlgate/pkg/adapter"
)

func init() {
	adapter.Register("postgres", adapter.RolePrimary, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

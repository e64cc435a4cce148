// Package sqlite provides the embedded SQLite engine adapter used as the
// gateway's fallback engine.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/sqlgate/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/sqlgate/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", adapter.RoleFallback, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

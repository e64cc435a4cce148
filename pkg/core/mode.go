package core

import "fmt"

// EngineMode identifies which storage engine a gateway is bound to.
// It is chosen once when the gateway is opened and never changes afterwards.
type EngineMode int

const (
	// ModePrimary is the networked, pooled relational engine.
	ModePrimary EngineMode = iota + 1
	// ModeFallback is the embedded, file-backed engine.
	ModeFallback
)

func (m EngineMode) String() string {
	switch m {
	case ModePrimary:
		return "primary"
	case ModeFallback:
		return "fallback"
	default:
		return fmt.Sprintf("EngineMode(%d)", int(m))
	}
}

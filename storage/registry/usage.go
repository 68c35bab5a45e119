package registry

// Usage restricts which programs should accept a given backend.
//
// Backends are linked at build time: a backend registers itself via init()
// and is enabled in a binary by importing its package, usually blank.
type Usage uint8

const (
	// UsageCLI marks backends available to command-line tools (aqua).
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends available to long-running servers (aqua-stored).
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }

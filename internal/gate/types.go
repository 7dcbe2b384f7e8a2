package gate

import "github.com/danielpatrickdp/context-insight/internal/ucr"

// #region result

// Result is the output of a gate evaluation. Errors are fatal: the module
// must not run. Warnings accompany a permitted run with degraded confidence.
type Result struct {
	Allowed bool

	MissingRequired []ucr.Section
	MissingOptional []ucr.Section

	Errors   []string
	Warnings []string
}

// #endregion result

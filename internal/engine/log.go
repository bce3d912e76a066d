// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package engine

import (
	"fmt"
	"log"
)

// logf logs a message prefixed with the engine's current clock reading in
// seconds and its local server index.
func (e *Engine) logf(format string, a ...any) {
	log.Printf("%.6f [%d]: %s", e.now, e.cfg.LocalServerID, fmt.Sprintf(format, a...))
}

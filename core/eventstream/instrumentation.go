package eventstream

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/kuware/council-core/core/eventstream"

var logger = otelslog.NewLogger(scopeName)

package arbor

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	log         = commonlog.GetLogger("arbor")
	mountingLog = commonlog.GetLogger("arbor.mounting")
	clippingLog = commonlog.GetLogger("arbor.clipping")
	tasksLog    = commonlog.GetLogger("arbor.tasks")
	surfaceLog  = commonlog.GetLogger("arbor.surface")
)

// ConfigureLogging sets up the commonlog backend from cfg. Higher verbosity
// logs more. An empty LogFile logs to stderr.
func ConfigureLogging(cfg *Config) {
	var path *string
	if cfg.LogFile != "" {
		path = &cfg.LogFile
	}
	commonlog.Configure(cfg.Verbosity, path)
}

package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// ToolName is recorded as the applying tool in the tracking table
	ToolName = "groundskeeper"

	// ConfigFile is the run configuration file at the root of a workspace
	ConfigFile = "groundskeeper.yaml"

	// DefaultTrackingTable is the name of the table recording applied versions
	DefaultTrackingTable = "__groundskeeper_version"

	// DefaultCommandTimeout bounds the execution of a single statement
	DefaultCommandTimeout = 30 * time.Second

	// DefaultBulkSeparator is the CSV field separator
	DefaultBulkSeparator = ","

	// DefaultBulkBatchSize is the number of CSV rows sent per INSERT
	DefaultBulkBatchSize = 500
)

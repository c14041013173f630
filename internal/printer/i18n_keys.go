package printer

const (
	keyParsedTitle        = "cli.parsed.title"
	keyReconstructedTitle = "cli.reconstructed.title"
	keyOutputTitle        = "cli.output.title"
	keyOutputStatus       = "cli.output.status"
	keyOutputDuration     = "cli.output.duration"
	keyOutputSize         = "cli.output.size"
	keyOutputEmpty        = "cli.output.empty"
	keyOutputBinary       = "cli.output.binary"
	keyJSONIndentSkipped  = "cli.json.indent_skipped"
	keyLoopStarted        = "cli.loop.started"
	keyLoopProgress       = "cli.loop.progress"
	keyLoopComplete       = "cli.loop.complete"
	keyLoopFailed         = "cli.loop.failed"
	keyLoopSummary        = "cli.loop.summary"
	keyHistoryEmpty       = "cli.history.empty"
	keyHistoryTotal       = "cli.history.total"
	keyHistoryTime        = "cli.history.columns.time"
	keyHistoryStatus      = "cli.history.columns.status"
	keyHistoryMethod      = "cli.history.columns.method"
	keyHistoryURL         = "cli.history.columns.url"
	keyHistoryDuration    = "cli.history.columns.duration"
)

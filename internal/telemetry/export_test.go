package telemetry

// SetupTo exposes setup with a custom local log writer.
var SetupTo = setup

package utils

// Configuration file locations.
const (
	// ConfigFileName is the per-project configuration file looked up in the working directory.
	ConfigFileName = ".texpurify.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".texpurify"
	// GlobalConfigFileName is the configuration file inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
)

const (
	// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes the fatal error of a run.
	ApplicationExecutionFailedMessage = "texpurify failed"
)

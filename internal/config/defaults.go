package config

const (
	defaultUploadDir    = "~/.local/share/fluently/uploads"
	defaultProcessedDir = "~/.local/share/fluently/processed"
	defaultAnalysisDir  = "~/.local/share/fluently/analysis"
	defaultLogDir       = "~/.local/share/fluently/logs"
	defaultAPIBind      = "127.0.0.1:8460"

	defaultMaxUploadMB = 50

	defaultModelPath = "~/.local/share/fluently/model/disfluency.json"

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultProcessingTimeout  = 600
	defaultWorkers            = 2

	defaultRetentionDays = 30

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

func defaultAllowedTypes() []string {
	return []string{"audio/wav", "audio/x-wav", "audio/mp3", "audio/mpeg"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:    defaultUploadDir,
			ProcessedDir: defaultProcessedDir,
			AnalysisDir:  defaultAnalysisDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Ingest: Ingest{
			AllowedTypes: defaultAllowedTypes(),
			MaxUploadMB:  defaultMaxUploadMB,
		},
		Model: Model{
			Path: defaultModelPath,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			ProcessingTimeout:  defaultProcessingTimeout,
			Workers:            defaultWorkers,
		},
		Retention: Retention{
			Days: defaultRetentionDays,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

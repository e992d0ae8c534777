package config

const (
	defaultDataDir               = "~/.local/share/hearingcap"
	defaultLogDir                = "~/.local/share/hearingcap/logs"
	defaultAudioDir              = "~/.local/share/hearingcap/audio"
	defaultStoreDriver           = "sqlite"
	defaultInspectorTimeout      = 15
	defaultInspectorSettle       = 3
	defaultInspectorHostInterval = 2
	defaultUserAgent             = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultConverterTimeout      = 1800
	defaultProbeTimeout          = 30
	defaultAudioFormat           = "wav"
	defaultAudioQuality          = "medium"
	defaultSampleRate            = 16000
	defaultChannels              = 1
	defaultYtdlpBinary           = "yt-dlp"
	defaultYtdlpResolveTimeout   = 60
	defaultWorkers               = 2
	defaultQueuePollInterval     = 10
	defaultErrorRetryInterval    = 30
	defaultConfidenceThreshold   = 0.5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 14
	databaseURLEnv               = "HEARINGCAP_DATABASE_URL"
	defaultPostgresMaxOpenConns  = 8
	defaultSQLiteMaxOpenConns    = 1
)

// DefaultStatusMapping returns the stage to status projection used when the
// config file leaves [lifecycle] empty.
func DefaultStatusMapping() map[string]string {
	return map[string]string{
		"discovered":  "new",
		"analyzed":    "queued",
		"captured":    "processing",
		"transcribed": "processing",
		"reviewed":    "review",
		"published":   "complete",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			AudioDir: defaultAudioDir,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Inspector: Inspector{
			TimeoutSeconds:      defaultInspectorTimeout,
			SettleSeconds:       defaultInspectorSettle,
			Headless:            true,
			UserAgent:           defaultUserAgent,
			HostIntervalSeconds: defaultInspectorHostInterval,
		},
		Converter: Converter{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			TimeoutSeconds:      defaultConverterTimeout,
			ProbeTimeoutSeconds: defaultProbeTimeout,
			Format:              defaultAudioFormat,
			Quality:             defaultAudioQuality,
			SampleRate:          defaultSampleRate,
			Channels:            defaultChannels,
		},
		YouTube: YouTube{
			YtdlpBinary:           defaultYtdlpBinary,
			ResolveTimeoutSeconds: defaultYtdlpResolveTimeout,
		},
		Workflow: Workflow{
			Workers:             defaultWorkers,
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Lifecycle: Lifecycle{
			StatusMapping: DefaultStatusMapping(),
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

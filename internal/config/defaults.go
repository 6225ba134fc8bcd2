package config

const (
	defaultOutputDir             = "~/.local/share/readout/output"
	defaultDataDir               = "~/.local/share/readout"
	defaultLogDir                = "~/.local/share/readout/logs"
	defaultAPIBind               = "127.0.0.1:7777"
	defaultWorkers               = 2
	defaultQueuePollInterval     = 5
	defaultErrorRetryInterval    = 10
	defaultStageTimeout          = 120
	defaultRetryBaseDelay        = 2
	defaultChunkChars            = 1800
	defaultTTSTimeoutSeconds     = 300
	defaultLLMTimeoutSeconds     = 60
	defaultLLMBaseURL            = "https://api.openai.com/v1"
	defaultTTSEngine             = "http"
	defaultTTSHTTPBaseURL        = "https://api.openai.com/v1"
	defaultTTSHTTPModel          = "tts-1"
	defaultTTSHTTPVoice          = "alloy"
	defaultTTSHTTPAltVoice       = "nova"
	defaultPiperBinary           = "piper"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultSeenLinkRetentionDays = 90
)

var defaultFetchTimes = []string{"06:00", "18:00"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			StageTimeout:       defaultStageTimeout,
			RetryBaseDelay:     defaultRetryBaseDelay,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			DefaultEngine:  defaultTTSEngine,
			ChunkChars:     defaultChunkChars,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			HTTP: TTSHTTP{
				BaseURL:  defaultTTSHTTPBaseURL,
				Model:    defaultTTSHTTPModel,
				Voice:    defaultTTSHTTPVoice,
				AltVoice: defaultTTSHTTPAltVoice,
			},
			Piper: TTSPiper{
				Binary: defaultPiperBinary,
			},
		},
		Scheduler: Scheduler{
			FetchTimes:            append([]string{}, defaultFetchTimes...),
			SeenLinkRetentionDays: defaultSeenLinkRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

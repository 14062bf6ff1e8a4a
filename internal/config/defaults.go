package config

import "runtime"

const (
	defaultDownloadsDir        = "~/.local/share/podclean/downloads"
	defaultEpisodesDir         = "~/.local/share/podclean/site/episodes"
	defaultSnippetsDir         = "~/.config/podclean/snippets"
	defaultFeedFile            = "~/.local/share/podclean/site/podcast.xml"
	defaultStateDir            = "~/.local/share/podclean/state"
	defaultFeedTitle           = "Clean Feed"
	defaultFeedDescription     = "Episodes with the annoying parts removed"
	defaultFeedLanguage        = "en-us"
	defaultFeedFetchLimit      = 2
	defaultFeedRequestTimeout  = 60
	defaultFeedUserAgent       = "podclean/dev"
	defaultSampleRate          = 16000
	defaultNMels               = 64
	defaultHopLength           = 512
	defaultFFTSize             = 2048
	defaultSimilarityThreshold = 0.75
	defaultMaxWorkers          = 8
	defaultSnippetErrors       = SnippetErrorsFail
	defaultExportFormat        = "mp3"
	defaultExportBitrate       = "128k"
	defaultKeepEpisodes        = 10
	defaultPollInterval        = 300
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Snippet load failure policies.
const (
	SnippetErrorsFail = "fail"
	SnippetErrorsSkip = "skip"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadsDir: defaultDownloadsDir,
			EpisodesDir:  defaultEpisodesDir,
			SnippetsDir:  defaultSnippetsDir,
			FeedFile:     defaultFeedFile,
			StateDir:     defaultStateDir,
		},
		Feed: Feed{
			Title:          defaultFeedTitle,
			Description:    defaultFeedDescription,
			Language:       defaultFeedLanguage,
			FetchLimit:     defaultFeedFetchLimit,
			RequestTimeout: defaultFeedRequestTimeout,
			UserAgent:      defaultFeedUserAgent,
		},
		Detection: Detection{
			SampleRate:          defaultSampleRate,
			NMels:               defaultNMels,
			HopLength:           defaultHopLength,
			FFTSize:             defaultFFTSize,
			SimilarityThreshold: defaultSimilarityThreshold,
			Workers:             defaultWorkers(),
			SnippetErrors:       defaultSnippetErrors,
		},
		Export: Export{
			Format:  defaultExportFormat,
			Bitrate: defaultExportBitrate,
		},
		Retention: Retention{
			KeepEpisodes:    defaultKeepEpisodes,
			TruncateSources: true,
		},
		Workflow: Workflow{
			PollInterval: defaultPollInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > defaultMaxWorkers {
		return defaultMaxWorkers
	}
	if n < 1 {
		return 1
	}
	return n
}

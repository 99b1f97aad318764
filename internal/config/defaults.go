package config

const (
	defaultDatabasePath        = "~/.local/share/streamguide/catalog.db"
	defaultLogDir              = "~/.local/share/streamguide/logs"
	defaultPublishDir          = "~/.local/share/streamguide/public"
	defaultTMDBBaseURL         = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL    = "https://image.tmdb.org/t/p/w500"
	defaultTMDBExportBaseURL   = "http://files.tmdb.org/p/exports"
	defaultTMDBLanguage        = "en-US"
	defaultTMDBRequestDelayMS  = 25
	defaultTMDBCooldownSeconds = 5
	defaultTMDBStaleDays       = 30
	defaultTMDBStaleBatch      = 50
	defaultTMDBProvidersBatch  = 500
	defaultTMDBSeedDelayMS     = 300
	defaultImportBatchSize     = 1000
	defaultWatchmodeBaseURL    = "https://api.watchmode.com/v1"
	defaultWatchmodeDaily      = 30
	defaultWatchmodeMonthly    = 1000
	defaultWatchmodeDelayMS    = 1100
	defaultMOTNBaseURL         = "https://streaming-availability.p.rapidapi.com"
	defaultMOTNDaily           = 95
	defaultMOTNDelayMS         = 1000
	defaultCountry             = "US"
	defaultVerifyBatch         = 200
	defaultVerifyTimeout       = 10
	defaultVerifyDelayMS       = 1000
	defaultFreeFreshDays       = 7
	defaultPaidFreshDays       = 30
	defaultSeedPriority        = 3
	defaultAPIBind             = "127.0.0.1:8787"
	defaultAPICacheTTLSeconds  = 300
	defaultAPIRatePerSecond    = 5
	defaultAPIBurst            = 20
	defaultScheduleCron        = "0 6 * * *"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogMaxSizeMB        = 20
	defaultLogMaxBackups       = 5
	defaultLogMaxAgeDays       = 60
)

// DefaultServices returns the built-in streaming platform definitions.
func DefaultServices() []Service {
	return []Service{
		{ID: "netflix", Name: "Netflix", Color: "#E50914", URL: "https://www.netflix.com"},
		{ID: "prime", Name: "Prime Video", Color: "#00A8E1", URL: "https://www.amazon.com/primevideo"},
		{ID: "hulu", Name: "Hulu", Color: "#1CE783", URL: "https://www.hulu.com"},
		{ID: "disney", Name: "Disney+", Color: "#113CCF", URL: "https://www.disneyplus.com"},
		{ID: "max", Name: "Max", Color: "#002BE7", URL: "https://www.max.com"},
		{ID: "appletv", Name: "Apple TV+", Color: "#000000", URL: "https://tv.apple.com"},
		{ID: "paramount", Name: "Paramount+", Color: "#0064FF", URL: "https://www.paramountplus.com"},
		{ID: "peacock", Name: "Peacock", Color: "#F47522", URL: "https://www.peacocktv.com"},
		{ID: "amc", Name: "AMC+", Color: "#00AEEF", URL: "https://www.amcplus.com"},
		{ID: "britbox", Name: "BritBox", Color: "#0F62AC", URL: "https://www.britbox.com"},
		{ID: "criterion", Name: "Criterion Channel", Color: "#000000", URL: "https://www.criterionchannel.com"},
		{ID: "tubi", Name: "Tubi", Free: true, Color: "#FA5141", URL: "https://tubitv.com"},
		{ID: "pluto", Name: "Pluto TV", Free: true, Color: "#FFC619", URL: "https://pluto.tv"},
		{ID: "roku", Name: "Roku Channel", Free: true, Color: "#6C1D8E", URL: "https://therokuchannel.roku.com"},
		{ID: "freevee", Name: "Amazon Freevee", Free: true, Color: "#00A8E1", URL: "https://www.amazon.com/adlp/freevee"},
		{ID: "youtube", Name: "YouTube", Free: true, Color: "#FF0000", URL: "https://www.youtube.com"},
	}
}

func defaultTrackedServices() []string {
	services := DefaultServices()
	ids := make([]string, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ID)
	}
	return ids
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Database:   defaultDatabasePath,
			LogDir:     defaultLogDir,
			PublishDir: defaultPublishDir,
		},
		TMDB: TMDB{
			BaseURL:         defaultTMDBBaseURL,
			ImageBaseURL:    defaultTMDBImageBaseURL,
			ExportBaseURL:   defaultTMDBExportBaseURL,
			Language:        defaultTMDBLanguage,
			RequestDelayMS:  defaultTMDBRequestDelayMS,
			CooldownSeconds: defaultTMDBCooldownSeconds,
			StaleDays:       defaultTMDBStaleDays,
			StaleBatch:      defaultTMDBStaleBatch,
			ProvidersBatch:  defaultTMDBProvidersBatch,
			SeedDelayMS:     defaultTMDBSeedDelayMS,
			ImportBatchSize: defaultImportBatchSize,
		},
		Watchmode: Watchmode{
			BaseURL:       defaultWatchmodeBaseURL,
			DailyBudget:   defaultWatchmodeDaily,
			MonthlyBudget: defaultWatchmodeMonthly,
			DelayMS:       defaultWatchmodeDelayMS,
		},
		MOTN: MOTN{
			BaseURL:     defaultMOTNBaseURL,
			DailyBudget: defaultMOTNDaily,
			DelayMS:     defaultMOTNDelayMS,
		},
		Catalog: Catalog{
			Country:  defaultCountry,
			Services: defaultTrackedServices(),
		},
		Verify: Verify{
			BatchSize:      defaultVerifyBatch,
			TimeoutSeconds: defaultVerifyTimeout,
			DelayMS:        defaultVerifyDelayMS,
			FreeFreshDays:  defaultFreeFreshDays,
			PaidFreshDays:  defaultPaidFreshDays,
		},
		Seed: Seed{
			Priority: defaultSeedPriority,
		},
		API: API{
			Bind:            defaultAPIBind,
			CacheTTLSeconds: defaultAPICacheTTLSeconds,
			RatePerSecond:   defaultAPIRatePerSecond,
			Burst:           defaultAPIBurst,
		},
		Schedule: Schedule{
			Cron: defaultScheduleCron,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}

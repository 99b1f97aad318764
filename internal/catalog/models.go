package catalog

import "time"

// ShowType distinguishes movies from series.
type ShowType string

const (
	ShowTypeMovie  ShowType = "movie"
	ShowTypeSeries ShowType = "series"
)

// TMDBKind returns the TMDB path segment for the type ("movie" or "tv").
func (t ShowType) TMDBKind() string {
	if t == ShowTypeSeries {
		return "tv"
	}
	return "movie"
}

// AccessType is how a service offers a title.
type AccessType string

const (
	AccessSubscription AccessType = "subscription"
	AccessFree         AccessType = "free"
	AccessRent         AccessType = "rent"
	AccessBuy          AccessType = "buy"
)

// EnrichStatus tracks direct-link completeness for a featured title.
type EnrichStatus string

const (
	StatusPending  EnrichStatus = "pending"
	StatusPartial  EnrichStatus = "partial"
	StatusComplete EnrichStatus = "complete"
	StatusFailed   EnrichStatus = "failed"
)

// Source records which provider wrote an availability row.
type Source string

const (
	SourceTMDBProviders Source = "tmdb_providers"
	SourceWatchmode     Source = "watchmode"
	SourceMOTN          Source = "motn"
	SourceManual        Source = "manual"
)

// Show is a catalog title.
type Show struct {
	ID             int64
	TMDBID         int64
	IMDBID         string
	Title          string
	OriginalTitle  string
	Type           ShowType
	ReleaseYear    *int
	RuntimeMinutes *int
	SeasonCount    *int
	Overview       string
	Rating         *float64
	Genres         []string
	ImageURL       string
	YouTubeURL     string
	Featured       bool
	TMDBFetchedAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ShowRef is the identity slice of a show that worklist queries return.
type ShowRef struct {
	ID       int64
	TMDBID   int64
	IMDBID   string
	Title    string
	Type     ShowType
	Priority int
}

// NewShow carries the minimal fields for identity inserts.
type NewShow struct {
	TMDBID      int64
	IMDBID      string
	Title       string
	Type        ShowType
	ReleaseYear int
	Featured    bool
}

// Metadata is a partial update. Nil fields leave stored values untouched.
type Metadata struct {
	IMDBID         *string
	Title          *string
	OriginalTitle  *string
	ReleaseYear    *int
	RuntimeMinutes *int
	SeasonCount    *int
	Overview       *string
	Rating         *float64
	Genres         []string
	ImageURL       *string
	YouTubeURL     *string
}

// Availability is one (show, service, access type) fact.
type Availability struct {
	ID            int64
	ShowID        int64
	ServiceID     string
	AccessType    AccessType
	StreamURL     string
	URLVerifiedAt *time.Time
	URLStatus     *int
	Price         *float64
	Source        Source
	FetchedAt     time.Time
}

// EnrichTarget is a featured show awaiting direct links.
type EnrichTarget struct {
	Show        ShowRef
	Status      EnrichStatus
	WatchmodeID *int64
}

// LinkToVerify is an availability row due for a liveness check.
type LinkToVerify struct {
	AvailabilityID int64
	ShowID         int64
	ServiceID      string
	StreamURL      string
	ServiceFree    bool
}

// CallRecord is one provider call for the quota log.
type CallRecord struct {
	Source   string
	Endpoint string
	ShowID   *int64
	Success  bool
	CalledAt time.Time
}

// Service is a streaming platform row.
type Service struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsFree      bool   `json:"is_free"`
	ColorHex    string `json:"color_hex"`
	BaseURL     string `json:"base_url"`
}

// Stats summarizes the catalog for the status command.
type Stats struct {
	Shows           int
	Featured        int
	MissingMetadata int
	Availability    int
	WithURL         int
	Verified        int
	Dead            int
	EnrichStatus    map[EnrichStatus]int
}

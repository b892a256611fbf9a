package model

import "time"

// Config holds the complete popimport configuration
type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Wikibase     WikibaseConfig     `mapstructure:"wikibase" yaml:"wikibase"`
	Import       ImportConfig       `mapstructure:"import" yaml:"import"`
	LT           LTConfig           `mapstructure:"lt" yaml:"lt"`
	LV           LVConfig           `mapstructure:"lv" yaml:"lv"`
	Output       OutputConfig       `mapstructure:"output" yaml:"output"`
}

// HTTPConfig controls outbound HTTP for feeds and the knowledge base
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
}

// CacheConfig controls caching of fetched feed documents
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// RateLimitingConfig controls the gate in front of knowledge-base writes
type RateLimitingConfig struct {
	// WriteInterval is the minimum spacing between two statement submissions.
	WriteInterval time.Duration `mapstructure:"write_interval" yaml:"write_interval"`
	BurstSize     int           `mapstructure:"burst_size" yaml:"burst_size"`
}

// WikibaseConfig points at the knowledge base and its query service
type WikibaseConfig struct {
	APIURL         string `mapstructure:"api_url" yaml:"api_url"`
	SPARQLEndpoint string `mapstructure:"sparql_endpoint" yaml:"sparql_endpoint"`
	Username       string `mapstructure:"username" yaml:"username,omitempty"`
	Password       string `mapstructure:"password" yaml:"-"`
	MaxLag         int    `mapstructure:"maxlag" yaml:"maxlag"`
	EditSummary    string `mapstructure:"edit_summary" yaml:"edit_summary"`
}

// ImportConfig holds settings shared by both pipelines
type ImportConfig struct {
	Year   int  `mapstructure:"year" yaml:"year"`
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
	// DeterminationMethod is the item used for the P459 qualifier.
	DeterminationMethod string `mapstructure:"determination_method" yaml:"determination_method"`
	// AccessDate overrides the P813 date (YYYY-MM-DD). Empty means today.
	AccessDate string `mapstructure:"access_date" yaml:"access_date,omitempty"`
}

// LTConfig describes the Statistics Lithuania SDMX feed
type LTConfig struct {
	StructureURL     string `mapstructure:"structure_url" yaml:"structure_url"`
	DataURL          string `mapstructure:"data_url" yaml:"data_url"`
	CodelistID       string `mapstructure:"codelist_id" yaml:"codelist_id"`
	DimensionID      string `mapstructure:"dimension_id" yaml:"dimension_id"`
	PeriodID         string `mapstructure:"period_id" yaml:"period_id"`
	Language         string `mapstructure:"language" yaml:"language"`
	StatisticsOffice string `mapstructure:"statistics_office" yaml:"statistics_office"`
	Wiki             string `mapstructure:"wiki" yaml:"wiki"`
	Country          string `mapstructure:"country" yaml:"country"`
	PlaceClass       string `mapstructure:"place_class" yaml:"place_class"`
	LogFile          string `mapstructure:"log_file" yaml:"log_file"`
}

// LVConfig describes the Central Statistical Bureau of Latvia files
type LVConfig struct {
	ClassificationFile string `mapstructure:"classification_file" yaml:"classification_file"`
	PopulationFile     string `mapstructure:"population_file" yaml:"population_file"`
	Encoding           string `mapstructure:"encoding" yaml:"encoding"`
	SourceURL          string `mapstructure:"source_url" yaml:"source_url"`
	IdentifierProperty string `mapstructure:"identifier_property" yaml:"identifier_property"`
	StatisticsOffice   string `mapstructure:"statistics_office" yaml:"statistics_office"`
	LogFile            string `mapstructure:"log_file" yaml:"log_file"`
}

// OutputConfig controls console output
type OutputConfig struct {
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       60 * time.Second,
			UserAgent:     "popimport/0.1 (+https://github.com/ppiankov/popimport)",
			MaxBodyBytes:  50_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".popimport-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			WriteInterval: 10 * time.Second,
			BurstSize:     1,
		},
		Wikibase: WikibaseConfig{
			APIURL:         "https://www.wikidata.org/w/api.php",
			SPARQLEndpoint: "https://query.wikidata.org/sparql",
			MaxLag:         5,
			EditSummary:    "import population data",
		},
		Import: ImportConfig{
			Year:                2017,
			DeterminationMethod: "Q15911027",
		},
		LT: LTConfig{
			StructureURL:     "https://osp-rs.stat.gov.lt/rest_xml/datastructure/LSD/M3010210",
			DataURL:          "https://osp-rs.stat.gov.lt/rest_xml/data/S3R167_M3010210/",
			CodelistID:       "miestasM3010210",
			DimensionID:      "miestasM3010210",
			PeriodID:         "LAIKOTARPIS",
			Language:         "lt",
			StatisticsOffice: "Q12663462",
			Wiki:             "https://lt.wikipedia.org/",
			Country:          "Q37",
			PlaceClass:       "Q486972",
			LogFile:          "import-lt.log",
		},
		LV: LVConfig{
			ClassificationFile: "klasifikators_29893.txt",
			PopulationFile:     "2017.csv",
			Encoding:           "utf-8",
			SourceURL:          "http://data.csb.gov.lv/pxweb/en/Sociala/Sociala__ikgad__iedz__iedzskaits",
			IdentifierProperty: PropATVK,
			StatisticsOffice:   "Q39420022",
			LogFile:            "import-lv.log",
		},
		Output: OutputConfig{
			LogLevel: "info",
		},
	}
}

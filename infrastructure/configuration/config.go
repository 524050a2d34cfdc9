package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"repurposer/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database     Database     `json:"database"`
	App          App          `json:"app"`
	Pubsub       Pubsub       `json:"pubsub"`
	ServiceBus   ServiceBus   `json:"serviceBus"`
	RedisClient  RedisClient  `json:"redisClient"`
	Logger       Logger       `json:"logger"`
	OAuth        OAuth        `json:"oauth"`
	Platforms    Platforms    `json:"platforms"`
	Scheduler    Scheduler    `json:"scheduler"`
	Gemini       Gemini       `json:"gemini"`
	Media        Media        `json:"media"`
	Events       Events       `json:"events"`
	Subscription Subscription `json:"subscription"`
}

type App struct {
	Port        int      `json:"port"`
	SecretKey   string   `json:"secretKey"`
	TLSEnabled  bool     `json:"tlsEnabled"`
	TLSCertFile string   `json:"tlsCertFile"`
	TLSKeyFile  string   `json:"tlsKeyFile"`
	Origins     []string `json:"origins"`
	// PublishRatePerMinute bounds manual publish calls per user.
	PublishRatePerMinute float64 `json:"publishRatePerMinute"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"string"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	Facebook OAuthClient `json:"facebook"`
	Twitter  OAuthClient `json:"twitter"`
	LinkedIn OAuthClient `json:"linkedin"`
	Google   OAuthClient `json:"google"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectURI"`
	TokenURL     string `json:"tokenURL"`
}

// Platforms holds API endpoints per network; overridable for staging and tests.
type Platforms struct {
	LinkedInBaseURL  string `json:"linkedInBaseURL"`
	TwitterBaseURL   string `json:"twitterBaseURL"`
	GraphBaseURL     string `json:"graphBaseURL"`
	YouTubeEndpoint  string `json:"youTubeEndpoint"`
	YouTubePrivacy   string `json:"youTubePrivacy"`
	RequestTimeoutMs int    `json:"requestTimeoutMs"`
}

type Scheduler struct {
	Enabled                   bool `json:"enabled"`
	SweepIntervalSeconds      int  `json:"sweepIntervalSeconds"`
	RecurrenceIntervalMinutes int  `json:"recurrenceIntervalMinutes"`
	Concurrency               int  `json:"concurrency"`
	BatchSize                 int  `json:"batchSize"`
	LockTTLSeconds            int  `json:"lockTTLSeconds"`
	RefreshSkewSeconds        int  `json:"refreshSkewSeconds"`
}

type Gemini struct {
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
}

type Media struct {
	LocalRoot     string `json:"localRoot"`
	PublicBaseURL string `json:"publicBaseURL"`
	S3Bucket      string `json:"s3Bucket"`
	S3Region      string `json:"s3Region"`
}

// Events selects where post status events go besides the SSE hub: "pubsub", "servicebus" or "".
type Events struct {
	Sink string `json:"sink"`
}

var C Config

func init() {
	// OS env still has precedence over the files
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initOAuth(&C)
	initPlatforms(&C)
	initScheduler(&C)
	initGemini(&C)
	initSubscription(&C)
	if C.App.TLSEnabled {
		for _, c := range []*OAuthClient{&C.OAuth.Facebook, &C.OAuth.Twitter, &C.OAuth.LinkedIn, &C.OAuth.Google} {
			if c.RedirectURI != "" && !hasHTTPS(c.RedirectURI) {
				c.RedirectURI = toHTTPSCallback(c.RedirectURI)
			}
		}
	}
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	logger.GetLogger().WithField("host", C.Database.Psql.Host).Info("Database configuration")
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "repurposer")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "localhost")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "postgres")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")
	C.Database.Psql.SSLMode = getConfigValue(C.Database.Psql.SSLMode, "DB_SSLMODE", "disable")

	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")
	C.Database.Mongo.User = getConfigValue(C.Database.Mongo.User, "MONGO_USER", "")
	C.Database.Mongo.Password = getConfigValue(C.Database.Mongo.Password, "MONGO_PASSWORD", "")
	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB", "repurposer")

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if len(C.App.Origins) == 0 {
		C.App.Origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if C.App.PublishRatePerMinute <= 0 {
		C.App.PublishRatePerMinute = 10
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initOAuth(C *Config) {
	C.OAuth.Twitter.ClientID = getConfigValue(C.OAuth.Twitter.ClientID, "TWITTER_CLIENT_ID", "")
	C.OAuth.Twitter.ClientSecret = getConfigValue(C.OAuth.Twitter.ClientSecret, "TWITTER_CLIENT_SECRET", "")
	C.OAuth.Twitter.TokenURL = getConfigValue(C.OAuth.Twitter.TokenURL, "TWITTER_TOKEN_URL", "https://api.twitter.com/2/oauth2/token")

	C.OAuth.LinkedIn.ClientID = getConfigValue(C.OAuth.LinkedIn.ClientID, "LINKEDIN_CLIENT_ID", "")
	C.OAuth.LinkedIn.ClientSecret = getConfigValue(C.OAuth.LinkedIn.ClientSecret, "LINKEDIN_CLIENT_SECRET", "")
	C.OAuth.LinkedIn.TokenURL = getConfigValue(C.OAuth.LinkedIn.TokenURL, "LINKEDIN_TOKEN_URL", "https://www.linkedin.com/oauth/v2/accessToken")

	C.OAuth.Google.ClientID = getConfigValue(C.OAuth.Google.ClientID, "GOOGLE_CLIENT_ID", "")
	C.OAuth.Google.ClientSecret = getConfigValue(C.OAuth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET", "")
	C.OAuth.Google.RedirectURI = getConfigValue(C.OAuth.Google.RedirectURI, "GOOGLE_REDIRECT_URL", fmt.Sprintf("http://localhost:%d/auth/youtube/callback", C.App.Port))

	C.OAuth.Facebook.ClientID = getConfigValue(C.OAuth.Facebook.ClientID, "FACEBOOK_CLIENT_ID", "")
	C.OAuth.Facebook.ClientSecret = getConfigValue(C.OAuth.Facebook.ClientSecret, "FACEBOOK_CLIENT_SECRET", "")
	C.OAuth.Facebook.RedirectURI = getConfigValue(C.OAuth.Facebook.RedirectURI, "FACEBOOK_REDIRECT_URL", fmt.Sprintf("http://localhost:%d/auth/facebook/callback", C.App.Port))
}

func initPlatforms(C *Config) {
	p := &C.Platforms
	p.LinkedInBaseURL = getConfigValue(p.LinkedInBaseURL, "LINKEDIN_API_URL", "https://api.linkedin.com")
	p.TwitterBaseURL = getConfigValue(p.TwitterBaseURL, "TWITTER_API_URL", "https://api.twitter.com")
	p.GraphBaseURL = getConfigValue(p.GraphBaseURL, "GRAPH_API_URL", "https://graph.facebook.com/v18.0")
	p.YouTubeEndpoint = getConfigValue(p.YouTubeEndpoint, "YOUTUBE_API_URL", "")
	p.YouTubePrivacy = getConfigValue(p.YouTubePrivacy, "YOUTUBE_PRIVACY", "private")
	if p.RequestTimeoutMs <= 0 {
		p.RequestTimeoutMs = 20000
	}
}

func initScheduler(C *Config) {
	s := &C.Scheduler
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		s.Enabled = v == "true" || v == "1"
	}
	if s.SweepIntervalSeconds <= 0 {
		s.SweepIntervalSeconds = 60
	}
	if s.RecurrenceIntervalMinutes <= 0 {
		s.RecurrenceIntervalMinutes = 60
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 4
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 100
	}
	if s.LockTTLSeconds <= 0 {
		s.LockTTLSeconds = 300
	}
	if s.RefreshSkewSeconds <= 0 {
		s.RefreshSkewSeconds = 60
	}
}

func initGemini(C *Config) {
	C.Gemini.APIKey = getConfigValue(C.Gemini.APIKey, "GEMINI_API_KEY", "")
	C.Gemini.Model = getConfigValue(C.Gemini.Model, "GEMINI_MODEL", "gemini-1.5-flash")
	if C.Gemini.APIKey == "" {
		logger.GetLogger().Warn("GEMINI_API_KEY is not set; generation will fail")
	}
}

func (p Platforms) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutMs) * time.Millisecond
}

func (s Scheduler) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// RecurrenceInterval is both the materialisation period and the window an
// occurrence may lie behind or ahead of a run.
func (s Scheduler) RecurrenceInterval() time.Duration {
	return time.Duration(s.RecurrenceIntervalMinutes) * time.Minute
}

func (s Scheduler) LockTTL() time.Duration {
	return time.Duration(s.LockTTLSeconds) * time.Second
}

func (s Scheduler) RefreshSkew() time.Duration {
	return time.Duration(s.RefreshSkewSeconds) * time.Second
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return len(u) >= 8 && u[:8] == "https://" }
func toHTTPSCallback(u string) string {
	if len(u) >= 7 && u[:7] == "http://" {
		return "https://" + u[7:]
	}
	return u
}

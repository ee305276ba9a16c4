package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                    string // connection string for the database
	RedisURL              string // URL of the redis instance holding queues and state keys
	NatsURL               string // URL of the NATS server used for cross replica relay
	TrackerBaseURL        string // base URL of the normalized tracker position API
	WebsocketAddr         string // listen addr for the websocket hub
	LogLevel              string // sets the log level (zap log level values)
	SQLLogLevel           string // sets the log level for sql subsystem
	LogFormat             string // text vs json
	ProfilingPort         int    // port for profiling
	CalculationDelay      string // delay between device time and score calculation
	ContestantRefresh     string // interval for reloading contestant data
	TrackerRequestTimeout string // timeout for a single tracker API request
	LiveProcessing        bool   // if true, positions are processed as they arrive
	WaitForServices       string // max duration to wait for backing services at startup
)

// Config holds the configuration values which are used by the application
type Config struct {
	LiveProcessing bool // if true, positions are processed as they arrive
}

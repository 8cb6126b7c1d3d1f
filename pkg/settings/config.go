package settings

type Config struct {
	Server        Server        `mapstructure:"server"`
	Logger        Logger        `mapstructure:"logger"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	MongoDB       MongoDB       `mapstructure:"mongodb"`
	Redis         Redis         `mapstructure:"redis"`
	Kafka         Kafka         `mapstructure:"kafka"`
	Bulk          Bulk          `mapstructure:"bulk"`
}

// Server is the configuration for the ingest API server
type Server struct {
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Logger is the configuration for the logger
type Logger struct {
	LogLevel    string `mapstructure:"log_level"`
	FileLogName string `mapstructure:"file_log_name"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxSize     int    `mapstructure:"max_size"`
	Compress    bool   `mapstructure:"compress"`
}

// Elasticsearch is the configuration for Elasticsearch
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// MongoDB is the configuration for MongoDB
type MongoDB struct {
	Host            string `mapstructure:"host"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Collection      string `mapstructure:"collection"`
	MaxPoolSize     uint64 `mapstructure:"max_pool_size"`
	MinPoolSize     uint64 `mapstructure:"min_pool_size"`
	MaxConnIdleTime uint64 `mapstructure:"max_conn_idle_time"`
	Port            int    `mapstructure:"port"`
	Timeout         int    `mapstructure:"timeout"`
}

// Redis is the configuration for Redis
type Redis struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Password        string `mapstructure:"password"`
	Database        int    `mapstructure:"database"`
	PoolSize        int    `mapstructure:"pool_size"`
	MinIdleConns    int    `mapstructure:"min_idle_conns"`
	PoolTimeout     int    `mapstructure:"pool_timeout"`
	DialTimeout     int    `mapstructure:"dial_timeout"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
	MaxRetryBackoff int    `mapstructure:"max_retry_backoff"`
	MinRetryBackoff int    `mapstructure:"min_retry_backoff"`
}

// Kafka is the configuration for the Kafka mutation source
type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topics            []string `mapstructure:"topics"`
	GroupID           string   `mapstructure:"group_id"`
	InitialOffset     string   `mapstructure:"initial_offset"`      // "oldest" or "newest"
	Timeout           int      `mapstructure:"timeout"`             // Seconds
	MaxRetries        int      `mapstructure:"max_retries"`         // Number of retries
	RetryBackoff      int      `mapstructure:"retry_backoff"`       // Milliseconds
	MaxProcessingTime int      `mapstructure:"max_processing_time"` // Milliseconds
}

// Bulk is the configuration for the bulk writer
type Bulk struct {
	Sink               string `mapstructure:"sink"`                 // "elasticsearch" (default) or "mongodb"
	Size               int    `mapstructure:"size"`                 // Documents per bulk request
	MaxActiveRequests  int    `mapstructure:"max_active_requests"`  // Outstanding submissions per sink
	WaitBeforeContinue int    `mapstructure:"wait_before_continue"` // Milliseconds
	MaxTotalStalls     int    `mapstructure:"max_total_stalls"`     // Stall budget before flush aborts
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel   string
	AWS        AWSConfig
	Optimizer  OptimizerConfig
	Model      ModelConfig
	Cost       CostConfig
	Apply      ApplyConfig
	History    HistoryConfig
	Database   DatabaseConfig
	Dynamo     DynamoConfig
	S3         S3Config
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	Server     ServerConfig
	Security   SecurityConfig
}

type AWSConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type OptimizerConfig struct {
	Window         time.Duration
	Period         time.Duration
	OutputPath     string
	MetricsBackend string
	CycleTimeout   time.Duration
	// Dimensions по категориям: "InstanceId=i-123,AutoScalingGroupName=web"
	EC2Dimensions map[string]string
	RDSDimensions map[string]string
	ALBDimensions map[string]string
	HostDBPorts   []uint32
}

type ModelConfig struct {
	ID        string
	MaxTokens int
	Region    string
}

type CostConfig struct {
	Source   string
	Lookback int
}

type ApplyConfig struct {
	SimulatedDelay time.Duration
}

type HistoryConfig struct {
	Backend string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type DynamoConfig struct {
	Table     string
	Endpoint  string
	Retention time.Duration
}

type S3Config struct {
	Enabled      bool
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	KeyPrefix    string
	URLMode      string
	PresignedTTL time.Duration
}

type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type CloudWatchConfig struct {
	MetricsEnabled bool
	Namespace      string
	LogsEnabled    bool
	LogGroup       string
	LogStream      string
	FlushInterval  time.Duration
	BufferSize     int
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	SessionTTL     time.Duration
	RunRatePerMin  int
	RunRateBurst   int
}

const (
	MetricsBackendCloudWatch = "cloudwatch"
	MetricsBackendHost       = "host"

	CostSourceStatic       = "static"
	CostSourceCostExplorer = "costexplorer"

	HistoryBackendNone     = "none"
	HistoryBackendPostgres = "postgres"
	HistoryBackendDynamoDB = "dynamodb"
)

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	window, err := parseDuration(getEnv("OPTIMIZER_WINDOW", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_WINDOW: %w", err)
	}

	period, err := parseDuration(getEnv("OPTIMIZER_PERIOD", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_PERIOD: %w", err)
	}

	cycleTimeout, err := parseDuration(getEnv("OPTIMIZER_CYCLE_TIMEOUT", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_CYCLE_TIMEOUT: %w", err)
	}

	ec2Dims, err := parseDimensions(getEnv("OPTIMIZER_EC2_DIMENSIONS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_EC2_DIMENSIONS: %w", err)
	}
	rdsDims, err := parseDimensions(getEnv("OPTIMIZER_RDS_DIMENSIONS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_RDS_DIMENSIONS: %w", err)
	}
	albDims, err := parseDimensions(getEnv("OPTIMIZER_ALB_DIMENSIONS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_ALB_DIMENSIONS: %w", err)
	}

	dbPorts, err := parsePorts(getEnv("HOST_DB_PORTS", "5432,3306"))
	if err != nil {
		return nil, fmt.Errorf("invalid HOST_DB_PORTS: %w", err)
	}

	maxTokens, err := getEnvInt("MODEL_MAX_TOKENS", 3000)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_MAX_TOKENS: %w", err)
	}

	lookback, err := getEnvInt("COST_LOOKBACK_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("invalid COST_LOOKBACK_DAYS: %w", err)
	}

	applyDelay, err := parseDuration(getEnv("APPLY_SIMULATED_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid APPLY_SIMULATED_DELAY: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	dynamoRetention, err := parseDuration(getEnv("DYNAMODB_RETENTION", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DYNAMODB_RETENTION: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	flushInterval, err := parseDuration(getEnv("CLOUDWATCH_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_FLUSH_INTERVAL: %w", err)
	}

	bufferSize, err := getEnvInt("CLOUDWATCH_BUFFER_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_BUFFER_SIZE: %w", err)
	}

	runRate, err := getEnvInt("RUN_RATE_LIMIT_PER_MINUTE", 6)
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_RATE_LIMIT_PER_MINUTE: %w", err)
	}

	sessionTTL, err := parseDuration(getEnv("AUTH_SESSION_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_SESSION_TTL: %w", err)
	}

	region := getEnv("AWS_REGION", "us-east-1")

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AWS: AWSConfig{
			Region:          region,
			Endpoint:        getEnv("AWS_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Optimizer: OptimizerConfig{
			Window:         window,
			Period:         period,
			OutputPath:     getEnv("OUTPUT_PATH", "optimization_results.json"),
			MetricsBackend: strings.ToLower(getEnv("METRICS_BACKEND", MetricsBackendCloudWatch)),
			CycleTimeout:   cycleTimeout,
			EC2Dimensions:  ec2Dims,
			RDSDimensions:  rdsDims,
			ALBDimensions:  albDims,
			HostDBPorts:    dbPorts,
		},
		Model: ModelConfig{
			ID:        getEnv("MODEL_ID", "anthropic.claude-3-sonnet-20240229-v1:0"),
			MaxTokens: maxTokens,
			Region:    getEnv("MODEL_REGION", region),
		},
		Cost: CostConfig{
			Source:   strings.ToLower(getEnv("COST_SOURCE", CostSourceStatic)),
			Lookback: lookback,
		},
		Apply: ApplyConfig{
			SimulatedDelay: applyDelay,
		},
		History: HistoryConfig{
			Backend: strings.ToLower(getEnv("HISTORY_BACKEND", HistoryBackendNone)),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "optimizer"),
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Dynamo: DynamoConfig{
			Table:     getEnv("DYNAMODB_TABLE", "optimizer-cycles"),
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Retention: dynamoRetention,
		},
		S3: S3Config{
			Enabled:      getEnvBool("S3_ENABLED", false),
			Bucket:       getEnv("S3_BUCKET", ""),
			Region:       getEnv("S3_REGION", region),
			Endpoint:     getEnv("S3_ENDPOINT", ""),
			UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
			KeyPrefix:    getEnv("S3_KEY_PREFIX", "cycles"),
			URLMode:      getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL: presignedTTL,
		},
		Redis: RedisConfig{
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        redisDB,
			TTL:       redisTTL,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "optimizer:"),
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled: getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			Namespace:      getEnv("CLOUDWATCH_NAMESPACE", "InfraOptimizer"),
			LogsEnabled:    getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroup:       getEnv("CLOUDWATCH_LOG_GROUP", "/infra-optimizer"),
			LogStream:      getEnv("CLOUDWATCH_LOG_STREAM", defaultLogStream()),
			FlushInterval:  flushInterval,
			BufferSize:     bufferSize,
		},
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    cycleTimeout + 10*time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			SessionTTL:     sessionTTL,
			RunRatePerMin:  runRate,
			RunRateBurst:   1,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Optimizer.Window <= 0 {
		return fmt.Errorf("OPTIMIZER_WINDOW must be positive")
	}
	if c.Optimizer.Period < time.Minute || c.Optimizer.Period%time.Minute != 0 {
		return fmt.Errorf("OPTIMIZER_PERIOD must be a positive multiple of 1m")
	}
	if c.Optimizer.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH cannot be empty")
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be positive")
	}
	if c.Apply.SimulatedDelay < 0 {
		return fmt.Errorf("APPLY_SIMULATED_DELAY cannot be negative")
	}

	switch c.Optimizer.MetricsBackend {
	case MetricsBackendCloudWatch, MetricsBackendHost:
	default:
		return fmt.Errorf("unsupported METRICS_BACKEND: %s", c.Optimizer.MetricsBackend)
	}

	switch c.Cost.Source {
	case CostSourceStatic, CostSourceCostExplorer:
	default:
		return fmt.Errorf("unsupported COST_SOURCE: %s", c.Cost.Source)
	}

	switch c.History.Backend {
	case HistoryBackendNone, HistoryBackendPostgres, HistoryBackendDynamoDB:
	default:
		return fmt.Errorf("unsupported HISTORY_BACKEND: %s", c.History.Backend)
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}

	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("AUTH_SESSION_TTL must be positive")
	}

	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseDimensions(raw string) (map[string]string, error) {
	dims := make(map[string]string)
	for _, pair := range splitCSV(raw) {
		name, value, ok := strings.Cut(pair, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("dimension %q must look like Name=Value", pair)
		}
		dims[name] = value
	}
	return dims, nil
}

func parsePorts(raw string) ([]uint32, error) {
	ports := make([]uint32, 0)
	for _, item := range splitCSV(raw) {
		port, err := strconv.ParseUint(item, 10, 16)
		if err != nil {
			return nil, err
		}
		ports = append(ports, uint32(port))
	}
	return ports, nil
}

func defaultLogStream() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "optimizer"
	}
	return host
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// EngineConfig holds the ticket-engine knobs. Defaults match production
// behavior: a called ticket expires after 5 minutes, presence validation
// requires the holder within 0.5 km of the branch, proximity discovery looks
// 1 km out.
type EngineConfig struct {
	CallTimeout          time.Duration
	ProximityRadiusKm    float64
	DiscoveryRadiusKm    float64
	ProximityThrottle    time.Duration
	NearTurnThrottle     time.Duration
	NearTurnThresholdMin float64
	DemandThreshold      float64
	WalkingSpeedKmh      float64
	SweepInterval        time.Duration
}

var AppConfig *Config

func LoadConfig() *Config {
	AppConfig = &Config{
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Engine:   GetEngineConfig(),
	}
	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // test DB on 5433
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // test Redis on 6380
		Password: "",
		DB:       1,
	}

	return &Config{
		Database: testConfig,
		Redis:    testRedisConfig,
		Engine:   GetEngineConfig(),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetEngineConfig() EngineConfig {
	return EngineConfig{
		CallTimeout:          getDurationEnv("CALL_TIMEOUT", 5*time.Minute),
		ProximityRadiusKm:    getFloatEnv("PROXIMITY_RADIUS_KM", 0.5),
		DiscoveryRadiusKm:    getFloatEnv("DISCOVERY_RADIUS_KM", 1.0),
		ProximityThrottle:    getDurationEnv("PROXIMITY_THROTTLE", time.Hour),
		NearTurnThrottle:     getDurationEnv("NEAR_TURN_THROTTLE", 60*time.Second),
		NearTurnThresholdMin: getFloatEnv("NEAR_TURN_THRESHOLD_MIN", 5),
		DemandThreshold:      getFloatEnv("DEMAND_THRESHOLD", 0.7),
		WalkingSpeedKmh:      getFloatEnv("WALKING_SPEED_KMH", 4.5),
		SweepInterval:        getDurationEnv("SWEEP_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}
	return d
}

func getFloatEnv(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		panic(err)
	}
	return f
}

/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "NS"

// SetValue sets a configuration value for the specified key.
func SetValue(key string, value interface{}) {
	viper.Set(key, value)
}

// LoadConfig loads configuration from the specified TOML file path.
// Every key can be overridden through the environment with the NS_ prefix,
// e.g. NS_SERVER_PORT overrides server.port.
func LoadConfig(path string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("toml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

// GetHost returns the listen address of the API server.
func GetHost() string {
	return getString(serverHost, "0.0.0.0")
}

// GetServerPort returns the API server port.
func GetServerPort() int {
	return getInt(serverPort, 54323)
}

// GetNodeName returns the identity this node claims jobs under.
// Defaults to the OS hostname.
func GetNodeName() string {
	if name := getString(serverNodeName, ""); name != "" {
		return name
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// GetServerDir returns the root directory for job workspaces and logs.
func GetServerDir() string {
	if dir := getString(serverDir, ""); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nexus_server"
	}
	return filepath.Join(home, ".nexus_server")
}

// GetRefreshRate returns the scheduler tick interval in seconds.
func GetRefreshRate() int {
	return getInt(serverRefreshRate, 3)
}

// GetApiKey returns the shared bearer token. Empty disables authentication.
func GetApiKey() string {
	return getString(serverApiKey, "")
}

// GetLogLevel maps the configured log level name to a klog verbosity.
// Accepted values are debug, info, warning, and error.
func GetLogLevel() int {
	switch strings.ToLower(getString(serverLogLevel, "info")) {
	case "debug":
		return 4
	case "warning":
		return 1
	case "error":
		return 0
	default:
		return 2
	}
}

// GetStoreEndpoint returns the SQL store DSN.
func GetStoreEndpoint() string {
	return getString(dbStoreEndpoint, "")
}

// GetDBMaxOpenConns returns the maximum number of open database connections.
func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 100)
}

// GetDBMaxIdleConns returns the maximum number of idle database connections.
func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

// GetDBMaxLifetimeSecond returns the maximum lifetime of database connections in seconds.
func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetime, 600)
}

// GetDBMaxIdleTimeSecond returns the maximum idle time of database connections in seconds.
func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 60)
}

// GetDBConnectTimeoutSecond returns the database connection timeout in seconds.
func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

// GetDBRequestTimeoutSecond returns the database request timeout in seconds.
func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 20)
}

// IsMockGpus returns whether the GPU inventory is mocked.
func IsMockGpus() bool {
	return getBool(gpuMock, false)
}

// GetPmonTimeoutSecond returns the timeout for GPU tool invocations in seconds.
func GetPmonTimeoutSecond() int {
	return getInt(gpuPmonWait, 5)
}

// GetWandbSearchSeconds returns how long after start a job is polled for a
// run URL.
func GetWandbSearchSeconds() int {
	return getInt(wandbSearchSeconds, 720)
}

// IsArtifactSweepEnabled returns whether the periodic orphan artifact sweep runs.
func IsArtifactSweepEnabled() bool {
	return getBool(artifactSweepEnable, true)
}

// GetArtifactSweepCron returns the cron expression for the orphan artifact sweep.
func GetArtifactSweepCron() string {
	return getString(artifactSweepCron, "0 * * * *")
}

// IsNotificationEnable returns whether notifications are enabled.
func IsNotificationEnable() bool {
	return getBool(notificationEnable, true)
}

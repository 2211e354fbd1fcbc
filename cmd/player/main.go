package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syncroom/player/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	serverURL = configVar[string]{
		envKey:       "PLAYER_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "",
	}
	playerId = configVar[string]{
		envKey:       "PLAYER_ID",
		flagKey:      "player-id",
		defaultValue: "",
	}
	host = configVar[string]{
		envKey:       "PLAYER_HOST",
		flagKey:      "host",
		defaultValue: "127.0.0.1",
	}
	port = configVar[int]{
		envKey:       "PLAYER_PORT",
		flagKey:      "port",
		defaultValue: 8090,
	}
	logLevel = configVar[string]{
		envKey:       "PLAYER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	tickInterval = configVar[int]{
		envKey:       "PLAYER_TICK_INTERVAL_MS",
		flagKey:      "tick-interval-ms",
		defaultValue: 1500,
	}
	driftThreshold = configVar[int]{
		envKey:       "PLAYER_DRIFT_THRESHOLD_MS",
		flagKey:      "drift-threshold-ms",
		defaultValue: 3000,
	}
	gracePeriod = configVar[int]{
		envKey:       "PLAYER_GRACE_PERIOD_MS",
		flagKey:      "grace-period-ms",
		defaultValue: 2500,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, "Playback channel websocket url")
	pflag.String(playerId.flagKey, playerId.defaultValue, "Unique id of this player instance")
	pflag.String(host.flagKey, host.defaultValue, "Control surface host")
	pflag.Int(port.flagKey, port.defaultValue, "Control surface port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(tickInterval.flagKey, tickInterval.defaultValue, "Sync loop tick interval in milliseconds")
	pflag.Int(driftThreshold.flagKey, driftThreshold.defaultValue, "Drift beyond which a corrective seek is issued, milliseconds")
	pflag.Int(gracePeriod.flagKey, gracePeriod.defaultValue, "Post-creation window without drift correction, milliseconds")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(serverURL.flagKey, serverURL.envKey)
	viper.BindEnv(playerId.flagKey, playerId.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(tickInterval.flagKey, tickInterval.envKey)
	viper.BindEnv(driftThreshold.flagKey, driftThreshold.envKey)
	viper.BindEnv(gracePeriod.flagKey, gracePeriod.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(serverURL.flagKey, serverURL.defaultValue)
	viper.SetDefault(playerId.flagKey, playerId.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(tickInterval.flagKey, tickInterval.defaultValue)
	viper.SetDefault(driftThreshold.flagKey, driftThreshold.defaultValue)
	viper.SetDefault(gracePeriod.flagKey, gracePeriod.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	config := &app.AppConfig{
		ServerURL:        viper.GetString(serverURL.flagKey),
		PlayerId:         viper.GetString(playerId.flagKey),
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         viper.GetString(logLevel.flagKey),
		TickIntervalMs:   viper.GetInt(tickInterval.flagKey),
		DriftThresholdMs: viper.GetInt(driftThreshold.flagKey),
		GracePeriodMs:    viper.GetInt(gracePeriod.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting player with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}

/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix      = "server."
	serverHost        = serverPrefix + "host"
	serverPort        = serverPrefix + "port"
	serverNodeName    = serverPrefix + "node_name"
	serverDir         = serverPrefix + "server_dir"
	serverRefreshRate = serverPrefix + "refresh_rate"
	serverApiKey      = serverPrefix + "api_key"
	serverLogLevel    = serverPrefix + "log_level"

	// db
	dbPrefix               = "db."
	dbStoreEndpoint        = dbPrefix + "store_endpoint"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetime          = dbPrefix + "max_life_time_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_second"

	// gpu
	gpuPrefix   = "gpu."
	gpuMock     = gpuPrefix + "mock_gpus"
	gpuPmonWait = gpuPrefix + "pmon_timeout_second"

	// scheduler
	schedulerPrefix     = "scheduler."
	wandbSearchSeconds  = schedulerPrefix + "wandb_search_seconds"
	artifactSweepCron   = schedulerPrefix + "artifact_sweep_cron"
	artifactSweepEnable = schedulerPrefix + "artifact_sweep_enable"

	// notification
	notificationPrefix = "notification."
	notificationEnable = notificationPrefix + "enable"
)

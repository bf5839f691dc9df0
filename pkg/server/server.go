/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package server assembles and runs the daemon: store client, scheduler
// loop, artifact sweep, and the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/nexus/pkg/config"
	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	"github.com/AMD-AIG-AIMA/nexus/pkg/gpu"
	"github.com/AMD-AIG-AIMA/nexus/pkg/handlers"
	"github.com/AMD-AIG-AIMA/nexus/pkg/health"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	commonklog "github.com/AMD-AIG-AIMA/nexus/pkg/klog"
	"github.com/AMD-AIG-AIMA/nexus/pkg/notification"
	"github.com/AMD-AIG-AIMA/nexus/pkg/options"
	"github.com/AMD-AIG-AIMA/nexus/pkg/scheduler"
)

const serverLogName = "nexus-server.log"

type Server struct {
	opts       *options.Options
	httpServer *http.Server
	dbClient   *dbclient.Client
	scheduler  *scheduler.Scheduler
	sweeper    *scheduler.ArtifactSweeper
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

// NewServer creates and returns a new Server instance.
func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{
		opts:   &options.Options{},
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// init performs the startup sequence: flags, config, logging, workspace
// directories, session tool check, store connection, and component wiring.
func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	var err error
	if err = s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err = s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	serverDir := config.GetServerDir()
	for _, dir := range []string{serverDir, filepath.Join(serverDir, "jobs"), filepath.Join(serverDir, "logs")} {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %v", dir, err)
		}
	}
	if err = s.initLogs(serverDir); err != nil {
		return err
	}
	if err = checkSessionTool(); err != nil {
		klog.ErrorS(err, "session tool check failed")
		return err
	}

	s.dbClient = dbclient.NewClient()
	if s.dbClient == nil {
		return fmt.Errorf("failed to connect the store at %s", config.GetStoreEndpoint())
	}
	if err = s.dbClient.AutoMigrate(); err != nil {
		return err
	}

	node := config.GetNodeName()
	runner := jobv.NewRunner(serverDir)
	lister := gpu.NewLister(config.IsMockGpus(), time.Duration(config.GetPmonTimeoutSecond())*time.Second)
	notifier := notification.NewManager(config.IsNotificationEnable())
	checker := health.NewChecker(serverDir)

	s.scheduler = scheduler.New(node, s.dbClient, runner, lister, notifier,
		time.Duration(config.GetRefreshRate())*time.Second,
		time.Duration(config.GetWandbSearchSeconds())*time.Second)
	if config.IsArtifactSweepEnabled() {
		s.sweeper = scheduler.NewArtifactSweeper(s.scheduler, config.GetArtifactSweepCron())
	}

	handler := handlers.NewHandler(node, s.dbClient, runner, lister, notifier, checker, s.serverLogPath(serverDir))
	engine := handlers.InitHttpHandlers(handler, config.GetApiKey())
	addr := fmt.Sprintf("%s:%d", config.GetHost(), config.GetServerPort())
	s.httpServer = &http.Server{Addr: addr, Handler: engine}

	s.isInited = true
	return nil
}

// Start begins daemon operation: the scheduler loop, the artifact sweep, and
// the HTTP server. It blocks until a termination signal arrives, then shuts
// everything down.
func (s *Server) Start() error {
	if !s.isInited {
		return fmt.Errorf("please init the server first")
	}
	klog.Infof("starting nexus-server on node %s", config.GetNodeName())

	go s.scheduler.Run(s.ctx)
	if s.sweeper != nil {
		if err := s.sweeper.Start(s.ctx); err != nil {
			klog.ErrorS(err, "failed to start artifact sweep")
			return err
		}
	}

	go func() {
		klog.Infof("http-server listen on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http server")
			s.cancel()
		}
	}()

	<-s.ctx.Done()
	s.Stop()
	return nil
}

// Stop gracefully shuts down the HTTP server and background workers, then
// flushes logs.
func (s *Server) Stop() {
	klog.Info("shutting down http server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		klog.ErrorS(err, "failed to shutdown http server")
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	s.dbClient.Close()
	klog.Info("nexus-server is stopped")
	klog.Flush()
}

// initConfig loads the daemon configuration from the optional config file.
func (s *Server) initConfig() error {
	path := s.opts.Config
	if path != "" {
		fullPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = fullPath
	}
	if err := config.LoadConfig(path); err != nil {
		return fmt.Errorf("config path: %s, err: %v", path, err)
	}
	return nil
}

// initLogs routes klog output to the daemon log under the server directory
// unless a log file path was given on the command line.
func (s *Server) initLogs(serverDir string) error {
	logPath := s.opts.LogfilePath
	if logPath == "" {
		logPath = s.serverLogPath(serverDir)
	}
	return commonklog.Init(logPath, s.opts.LogFileSize, config.GetLogLevel())
}

func (s *Server) serverLogPath(serverDir string) string {
	return filepath.Join(serverDir, "logs", serverLogName)
}

// checkSessionTool verifies GNU screen is installed. Jobs cannot be launched
// without it, so a missing binary fails startup unless GPUs are mocked.
func checkSessionTool() error {
	if _, err := exec.LookPath("screen"); err != nil {
		if config.IsMockGpus() {
			klog.Warningf("screen not found; continuing because mock_gpus is on")
			return nil
		}
		return fmt.Errorf("screen is required to run jobs: %v", err)
	}
	return nil
}

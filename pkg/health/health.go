/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package health scores the node's fitness for running jobs. The score is a
// 0-100 composite: disk weighs 40, network 30, cpu and memory 30 together.
package health

import (
	"context"
	"net"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"k8s.io/klog/v2"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"

	healthyThreshold  = 75
	degradedThreshold = 40
)

// Report is the node health snapshot served by the API.
type Report struct {
	Score          int     `json:"score"`
	Status         string  `json:"status"`
	DiskScore      int     `json:"disk_score"`
	NetworkScore   int     `json:"network_score"`
	ComputeScore   int     `json:"compute_score"`
	DiskPercent    float64 `json:"disk_percent"`
	MemoryPercent  float64 `json:"memory_percent"`
	CpuPercent     float64 `json:"cpu_percent"`
	NetworkLatency float64 `json:"network_latency_ms"`
}

// Checker samples system metrics and produces Reports. Probe functions are
// swappable for tests.
type Checker struct {
	path        string
	diskUsage   func(path string) (*disk.UsageStat, error)
	memUsage    func() (*mem.VirtualMemoryStat, error)
	cpuPercent  func(interval time.Duration, percpu bool) ([]float64, error)
	pingLatency func(ctx context.Context) (time.Duration, error)
}

// NewChecker creates a checker sampling the filesystem that holds path.
func NewChecker(path string) *Checker {
	return &Checker{
		path:        path,
		diskUsage:   disk.Usage,
		memUsage:    mem.VirtualMemory,
		cpuPercent:  cpu.Percent,
		pingLatency: probeNetwork,
	}
}

// Check produces a health report. Individual probe failures zero that
// component instead of failing the whole report.
func (c *Checker) Check(ctx context.Context) *Report {
	r := &Report{NetworkLatency: -1}

	if usage, err := c.diskUsage(c.path); err == nil {
		r.DiskPercent = usage.UsedPercent
		r.DiskScore = scoreDisk(usage.UsedPercent)
	} else {
		klog.V(2).Infof("disk probe failed: %v", err)
	}

	if latency, err := c.pingLatency(ctx); err == nil {
		r.NetworkLatency = float64(latency.Milliseconds())
		r.NetworkScore = scoreNetwork(latency)
	} else {
		klog.V(2).Infof("network probe failed: %v", err)
	}

	compute := 0
	if percents, err := c.cpuPercent(0, false); err == nil && len(percents) > 0 {
		r.CpuPercent = percents[0]
		compute += scoreLoad(percents[0])
	} else if err != nil {
		klog.V(2).Infof("cpu probe failed: %v", err)
	}
	if vm, err := c.memUsage(); err == nil {
		r.MemoryPercent = vm.UsedPercent
		compute += scoreLoad(vm.UsedPercent)
	} else {
		klog.V(2).Infof("memory probe failed: %v", err)
	}
	r.ComputeScore = compute

	r.Score = r.DiskScore + r.NetworkScore + r.ComputeScore
	// a nearly full disk caps the node regardless of everything else
	if r.DiskPercent > 95 && r.Score > 30 {
		r.Score = 30
	}
	r.Status = statusFor(r.Score)
	return r
}

// scoreDisk maps disk usage to its 40-point share.
func scoreDisk(usedPercent float64) int {
	switch {
	case usedPercent > 90:
		return 10
	case usedPercent > 80:
		return 25
	default:
		return 40
	}
}

// scoreNetwork maps probe latency to its 30-point share.
func scoreNetwork(latency time.Duration) int {
	switch {
	case latency < 50*time.Millisecond:
		return 30
	case latency < 150*time.Millisecond:
		return 20
	case latency < 300*time.Millisecond:
		return 10
	default:
		return 0
	}
}

// scoreLoad maps a cpu or memory utilization percentage to its 15-point
// share.
func scoreLoad(usedPercent float64) int {
	switch {
	case usedPercent > 90:
		return 0
	case usedPercent > 80:
		return 8
	default:
		return 15
	}
}

func statusFor(score int) string {
	switch {
	case score >= healthyThreshold:
		return StatusHealthy
	case score >= degradedThreshold:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

// probeNetwork measures reachability by timing a TCP handshake to a public
// resolver.
func probeNetwork(ctx context.Context) (time.Duration, error) {
	d := net.Dialer{Timeout: 2 * time.Second}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", "1.1.1.1:443")
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return time.Since(start), nil
}

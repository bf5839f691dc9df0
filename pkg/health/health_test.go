/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package health

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
)

func fakeChecker(diskPct, memPct, cpuPct float64, latency time.Duration) *Checker {
	return &Checker{
		path: "/",
		diskUsage: func(string) (*disk.UsageStat, error) {
			return &disk.UsageStat{UsedPercent: diskPct}, nil
		},
		memUsage: func() (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{UsedPercent: memPct}, nil
		},
		cpuPercent: func(time.Duration, bool) ([]float64, error) {
			return []float64{cpuPct}, nil
		},
		pingLatency: func(context.Context) (time.Duration, error) {
			return latency, nil
		},
	}
}

func TestCheckHealthy(t *testing.T) {
	r := fakeChecker(50, 40, 30, 10*time.Millisecond).Check(context.Background())
	assert.Equal(t, 100, r.Score)
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Equal(t, 40, r.DiskScore)
	assert.Equal(t, 30, r.NetworkScore)
	assert.Equal(t, 30, r.ComputeScore)
}

func TestCheckDegraded(t *testing.T) {
	r := fakeChecker(85, 85, 85, 200*time.Millisecond).Check(context.Background())
	// disk 25, network 10, cpu 8, mem 8
	assert.Equal(t, 51, r.Score)
	assert.Equal(t, StatusDegraded, r.Status)
}

func TestCheckFullDiskCapsScore(t *testing.T) {
	r := fakeChecker(96, 10, 10, 5*time.Millisecond).Check(context.Background())
	assert.Equal(t, 30, r.Score)
	assert.Equal(t, StatusCritical, r.Status)
}

func TestCheckProbeFailuresZeroComponents(t *testing.T) {
	c := fakeChecker(50, 50, 50, time.Millisecond)
	c.pingLatency = func(context.Context) (time.Duration, error) {
		return 0, fmt.Errorf("unreachable")
	}
	r := c.Check(context.Background())
	assert.Equal(t, 0, r.NetworkScore)
	assert.Equal(t, float64(-1), r.NetworkLatency)
	assert.Equal(t, 70, r.Score)
	assert.Equal(t, StatusDegraded, r.Status)
}

func TestScoreBoundaries(t *testing.T) {
	assert.Equal(t, 40, scoreDisk(80))
	assert.Equal(t, 25, scoreDisk(80.1))
	assert.Equal(t, 10, scoreDisk(90.1))
	assert.Equal(t, 30, scoreNetwork(49*time.Millisecond))
	assert.Equal(t, 0, scoreNetwork(300*time.Millisecond))
	assert.Equal(t, 15, scoreLoad(10))
	assert.Equal(t, 0, scoreLoad(95))
	assert.Equal(t, StatusHealthy, statusFor(75))
	assert.Equal(t, StatusDegraded, statusFor(74))
	assert.Equal(t, StatusCritical, statusFor(39))
}

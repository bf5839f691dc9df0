/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package gpu

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// Device is one physical GPU as reported by the node's management tool.
// Memory values are MiB.
type Device struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	MemoryTotal  int    `json:"memory_total"`
	MemoryUsed   int    `json:"memory_used"`
	ProcessCount int    `json:"process_count"`
}

// Info is a device decorated with scheduler state.
type Info struct {
	Device
	IsBlacklisted bool    `json:"is_blacklisted"`
	RunningJobId  *string `json:"running_job_id,omitempty"`
}

// Lister enumerates the GPUs of this node.
type Lister interface {
	ListDevices(ctx context.Context) ([]Device, error)
}

// NewLister returns the inventory source: a mocked two-GPU table when mock
// is set, otherwise nvidia-smi with the given per-command timeout.
func NewLister(mock bool, timeout time.Duration) Lister {
	if mock {
		return &mockLister{}
	}
	return &smiLister{timeout: timeout, run: runCmd}
}

type smiLister struct {
	timeout time.Duration
	run     func(ctx context.Context, name string, args ...string) (string, error)
}

// ListDevices queries nvidia-smi for the device table and overlays per-GPU
// process counts from pmon. A failed device query degrades to an empty
// inventory so the node schedules nothing instead of erroring; a pmon failure
// leaves the counts at zero.
func (l *smiLister) ListDevices(ctx context.Context) ([]Device, error) {
	ctx2, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	out, err := l.run(ctx2, "nvidia-smi",
		"--query-gpu=index,name,memory.total,memory.used", "--format=csv,noheader,nounits")
	if err != nil {
		klog.ErrorS(err, "gpu inventory unavailable, reporting no devices")
		return []Device{}, nil
	}
	devices := parseDeviceTable(out)

	ctx3, cancel3 := context.WithTimeout(ctx, l.timeout)
	defer cancel3()
	pmonOut, err := l.run(ctx3, "nvidia-smi", "pmon", "-c", "1")
	if err != nil {
		klog.V(2).Infof("pmon unavailable, process counts unknown: %v", err)
		return devices, nil
	}
	counts := parseProcessCounts(pmonOut)
	for i := range devices {
		devices[i].ProcessCount = counts[devices[i].Index]
	}
	return devices, nil
}

// parseDeviceTable parses csv,noheader,nounits output:
//
//	0, NVIDIA A100-SXM4-80GB, 81920, 1024
func parseDeviceTable(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		total, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
		used, _ := strconv.Atoi(strings.TrimSpace(parts[3]))
		devices = append(devices, Device{
			Index:       idx,
			Name:        strings.TrimSpace(parts[1]),
			MemoryTotal: total,
			MemoryUsed:  used,
		})
	}
	return devices
}

// parseProcessCounts parses `nvidia-smi pmon -c 1` output. Header lines start
// with '#'; a pid of "-" means the GPU is idle.
func parseProcessCounts(out string) map[int]int {
	counts := make(map[int]int)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		if fields[1] == "-" {
			continue
		}
		counts[idx]++
	}
	return counts
}

func runCmd(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// AttachState overlays blacklist membership and running-job ownership onto a
// device listing.
func AttachState(devices []Device, blacklisted []int, running map[int]string) []Info {
	blacklist := make(map[int]bool, len(blacklisted))
	for _, idx := range blacklisted {
		blacklist[idx] = true
	}
	infos := make([]Info, 0, len(devices))
	for _, d := range devices {
		info := Info{Device: d, IsBlacklisted: blacklist[d.Index]}
		if id, ok := running[d.Index]; ok {
			jobId := id
			info.RunningJobId = &jobId
		}
		infos = append(infos, info)
	}
	return infos
}

// Available returns the device indexes usable for a new job: not blacklisted
// and with no processes running, unless the job opts out of the blacklist.
func Available(devices []Device, blacklisted []int, running map[int]string, ignoreBlacklist bool) []int {
	blacklist := make(map[int]bool, len(blacklisted))
	for _, idx := range blacklisted {
		blacklist[idx] = true
	}
	var idxs []int
	for _, d := range devices {
		if _, busy := running[d.Index]; busy {
			continue
		}
		if blacklist[d.Index] && !ignoreBlacklist {
			continue
		}
		if d.ProcessCount > 0 {
			continue
		}
		idxs = append(idxs, d.Index)
	}
	return idxs
}

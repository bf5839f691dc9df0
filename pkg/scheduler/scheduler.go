/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package scheduler runs the per-node control loop: reap finished jobs,
// harvest W&B run URLs, and start at most one queued job per tick.
package scheduler

import (
	"context"
	"fmt"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"k8s.io/klog/v2"

	dbclient "github.com/AMD-AIG-AIMA/nexus/pkg/database/client"
	"github.com/AMD-AIG-AIMA/nexus/pkg/gpu"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	"github.com/AMD-AIG-AIMA/nexus/pkg/metrics"
	"github.com/AMD-AIG-AIMA/nexus/pkg/notification"
	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/timeutil"
	"github.com/AMD-AIG-AIMA/nexus/pkg/wandb"
)

const (
	// candidateBatch bounds how many queued jobs one tick inspects.
	candidateBatch = 50

	// logTailLines is how much log context rides along in failure
	// notifications.
	logTailLines = 20
)

type Scheduler struct {
	node        string
	store       *dbclient.Client
	runner      *jobv.Runner
	lister      gpu.Lister
	notifier    *notification.Manager
	interval    time.Duration
	wandbWindow time.Duration
}

// New assembles the scheduler for this node.
func New(node string, store *dbclient.Client, runner *jobv.Runner, lister gpu.Lister,
	notifier *notification.Manager, interval, wandbWindow time.Duration) *Scheduler {
	return &Scheduler{
		node:        node,
		store:       store,
		runner:      runner,
		lister:      lister,
		notifier:    notifier,
		interval:    interval,
		wandbWindow: wandbWindow,
	}
}

// Run executes the control loop until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	klog.Infof("scheduler started on node %s, interval %v", s.node, s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			klog.Infof("scheduler stopping")
			return
		case <-ticker.C:
			start := time.Now()
			if err := s.tick(ctx); err != nil {
				klog.ErrorS(err, "scheduler tick failed")
			}
			metrics.SchedulerTicks.Inc()
			metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// tick runs the three phases in order. Reaping before starting keeps freed
// GPUs usable within the same tick.
func (s *Scheduler) tick(ctx context.Context) error {
	if err := s.reapRunning(ctx); err != nil {
		return err
	}
	s.harvestWandbUrls(ctx)
	return s.startQueued(ctx)
}

// reapRunning finalizes this node's running jobs that were killed or whose
// process is gone.
func (s *Scheduler) reapRunning(ctx context.Context) error {
	running, err := s.runningJobs(ctx)
	if err != nil {
		return err
	}
	for _, j := range running {
		alive := s.runner.IsRunning(ctx, j)
		if j.MarkedForKill && alive {
			s.runner.Kill(ctx, j)
			s.finalize(ctx, j, jobv.StatusKilled, jobv.ExitResult{})
			continue
		}
		if alive {
			continue
		}
		// a dead job is reaped by its exit marker even when a kill was
		// requested, so the recorded exit code stays truthful
		res := s.runner.InspectExit(j)
		status := jobv.StatusFailed
		if res.ExitCode != nil && *res.ExitCode == 0 {
			status = jobv.StatusCompleted
		}
		s.finalize(ctx, j, status, res)
	}
	return nil
}

// finalize writes the terminal state inside a transaction, re-checking under
// the row lock that the job is still ours and still running, then announces
// the outcome.
func (s *Scheduler) finalize(ctx context.Context, j *jobv.Job, status jobv.Status, res jobv.ExitResult) {
	now := timeutil.EpochNow()
	var final *jobv.Job
	err := s.store.Transact(ctx, func(tx *dbclient.Tx) error {
		current, err := tx.GetJobForUpdate(ctx, j.Id)
		if err != nil {
			return err
		}
		if current.Status != jobv.StatusRunning || current.Node == nil || *current.Node != s.node {
			return nil
		}
		current.Status = status
		current.CompletedAt = &now
		current.ExitCode = res.ExitCode
		if status != jobv.StatusKilled && res.ErrorMessage != "" {
			msg := res.ErrorMessage
			current.ErrorMessage = &msg
		}
		final = current
		return tx.UpdateJob(ctx, current)
	})
	if err != nil {
		klog.ErrorS(err, "failed to finalize job", "id", j.Id, "status", status)
		return
	}
	if final == nil {
		return
	}
	klog.Infof("reaped job %s as %s", final.Id, final.Status)
	metrics.JobsFinished.WithLabelValues(string(final.Status)).Inc()
	s.notifier.NotifyFinished(ctx, final, s.runner.TailLog(final, logTailLines))
	s.runner.CleanupRepo(final)
}

// harvestWandbUrls scans recently started jobs for a W&B run URL and, once
// found, persists it and amends the start notification.
func (s *Scheduler) harvestWandbUrls(ctx context.Context) {
	running, err := s.runningJobs(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to list running jobs for wandb harvest")
		return
	}
	now := timeutil.EpochNow()
	for _, j := range running {
		if !j.HasIntegration(jobv.IntegrationWandb) {
			continue
		}
		if j.WandbUrl != nil || j.Dir == nil || j.StartedAt == nil {
			continue
		}
		if now-*j.StartedAt > s.wandbWindow.Seconds() {
			continue
		}
		url := wandb.FindUrlInDir(*j.Dir, jobv.OutputLogName)
		if url == "" {
			continue
		}
		j.WandbUrl = &url
		err = s.store.Transact(ctx, func(tx *dbclient.Tx) error {
			current, err := tx.GetJobForUpdate(ctx, j.Id)
			if err != nil {
				return err
			}
			if current.WandbUrl != nil {
				return nil
			}
			current.WandbUrl = &url
			return tx.UpdateJob(ctx, current)
		})
		if err != nil {
			klog.ErrorS(err, "failed to persist wandb url", "id", j.Id)
			continue
		}
		klog.Infof("job %s reports wandb run %s", j.Id, url)
		s.notifier.AttachWandbUrl(ctx, j)
	}
}

// startQueued claims and starts at most one queued job this node can serve.
func (s *Scheduler) startQueued(ctx context.Context) error {
	devices, err := s.lister.ListDevices(ctx)
	if err != nil {
		return err
	}
	blacklisted, err := s.store.ListBlacklistedGpus(ctx, s.node)
	if err != nil {
		return err
	}
	running, err := s.runningJobs(ctx)
	if err != nil {
		return err
	}
	owned := runningGpuMap(running)
	metrics.GpusAvailable.Set(float64(len(gpu.Available(devices, blacklisted, owned, false))))

	tags := dbclient.GetJobFieldTags()
	queued, err := s.store.SelectJobs(ctx,
		sqrl.And{
			sqrl.Eq{dbclient.GetFieldTag(tags, "Status"): string(jobv.StatusQueued)},
			sqrl.Eq{dbclient.GetFieldTag(tags, "Node"): nil},
		},
		[]string{dbclient.Priority + " " + dbclient.DESC, dbclient.CreatedAt + " " + dbclient.ASC},
		candidateBatch, 0)
	if err != nil {
		return err
	}

	for _, candidate := range queued {
		available := gpu.Available(devices, blacklisted, owned, candidate.IgnoreBlacklist)
		gpus, ok := pickGpus(candidate, available)
		if !ok {
			continue
		}
		claimed := false
		err = s.store.Transact(ctx, func(tx *dbclient.Tx) error {
			var cerr error
			claimed, cerr = tx.ClaimJob(ctx, candidate.Id, s.node)
			return cerr
		})
		if err != nil {
			return err
		}
		if !claimed {
			// another node won the race; wait for a fresh queue view
			return nil
		}
		s.startClaimed(ctx, candidate, gpus)
		return nil
	}
	return nil
}

// startClaimed launches a job this node just claimed. A start failure leaves
// the claim in place and fails the job so it never bounces between nodes.
func (s *Scheduler) startClaimed(ctx context.Context, j *jobv.Job, gpus []int) {
	now := timeutil.EpochNow()
	node := s.node
	j.Node = &node

	artifact, err := s.store.GetArtifact(ctx, j.ArtifactId)
	if err != nil {
		s.failStart(ctx, j, fmt.Sprintf("artifact %s unavailable: %v", j.ArtifactId, err))
		return
	}
	if err = s.runner.Start(ctx, j, gpus, artifact.Data); err != nil {
		s.failStart(ctx, j, err.Error())
		return
	}

	j.Status = jobv.StatusRunning
	j.StartedAt = &now
	j.GpuIdxsAssigned = gpus
	s.notifier.NotifyStarted(ctx, j)
	if err = s.store.UpdateJob(ctx, j); err != nil {
		klog.ErrorS(err, "failed to persist started job", "id", j.Id)
		return
	}
	metrics.JobsStarted.Inc()
	klog.Infof("job %s running on gpus %v", j.Id, gpus)
}

func (s *Scheduler) failStart(ctx context.Context, j *jobv.Job, reason string) {
	klog.Errorf("failed to start job %s: %s", j.Id, reason)
	now := timeutil.EpochNow()
	j.Status = jobv.StatusFailed
	j.CompletedAt = &now
	j.ErrorMessage = &reason
	if err := s.store.UpdateJob(ctx, j); err != nil {
		klog.ErrorS(err, "failed to persist start failure", "id", j.Id)
		return
	}
	metrics.JobsFinished.WithLabelValues(string(jobv.StatusFailed)).Inc()
	s.notifier.NotifyFinished(ctx, j, "")
}

func (s *Scheduler) runningJobs(ctx context.Context) ([]*jobv.Job, error) {
	tags := dbclient.GetJobFieldTags()
	return s.store.SelectJobs(ctx,
		sqrl.And{
			sqrl.Eq{dbclient.GetFieldTag(tags, "Status"): string(jobv.StatusRunning)},
			sqrl.Eq{dbclient.GetFieldTag(tags, "Node"): s.node},
		}, nil, 0, 0)
}

// pickGpus selects the devices for a job. Pinned jobs need every requested
// index free; elastic jobs take the lowest free indexes.
func pickGpus(j *jobv.Job, available []int) ([]int, bool) {
	if len(j.GpuIdxs) > 0 {
		free := make(map[int]bool, len(available))
		for _, idx := range available {
			free[idx] = true
		}
		for _, idx := range j.GpuIdxs {
			if !free[idx] {
				return nil, false
			}
		}
		return j.GpuIdxs, true
	}
	if j.NumGpus <= 0 || len(available) < j.NumGpus {
		return nil, false
	}
	return available[:j.NumGpus], true
}

// runningGpuMap maps each owned GPU index to the job occupying it.
func runningGpuMap(jobs []*jobv.Job) map[int]string {
	owned := make(map[int]string)
	for _, j := range jobs {
		for _, idx := range j.GpuIdxsAssigned {
			owned[idx] = j.Id
		}
	}
	return owned
}

/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/nexus/pkg/utils/timeutil"
)

// orphanMinAge keeps an unreferenced upload alive long enough for its job
// submission to arrive.
const orphanMinAge = time.Hour

// ArtifactSweeper periodically removes artifacts no job references anymore.
// Artifacts are content addressed and shared between jobs, so a blob only
// becomes garbage after the last job pointing at it is deleted.
type ArtifactSweeper struct {
	scheduler *Scheduler
	cron      *cron.Cron
	spec      string
}

func NewArtifactSweeper(s *Scheduler, spec string) *ArtifactSweeper {
	return &ArtifactSweeper{
		scheduler: s,
		cron:      cron.New(),
		spec:      spec,
	}
}

// Start registers the sweep schedule and begins running it.
func (w *ArtifactSweeper) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.spec, func() {
		w.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	klog.Infof("artifact sweep scheduled: %s", w.spec)
	return nil
}

// Stop waits for an in-flight sweep to finish.
func (w *ArtifactSweeper) Stop() {
	<-w.cron.Stop().Done()
}

// Sweep deletes orphaned artifacts older than orphanMinAge. Each delete
// re-checks the reference count transactionally, so a job submitted mid-sweep
// keeps its artifact.
func (w *ArtifactSweeper) Sweep(ctx context.Context) {
	cutoff := timeutil.EpochNow() - orphanMinAge.Seconds()
	orphans, err := w.scheduler.store.ListOrphanArtifacts(ctx, cutoff)
	if err != nil {
		klog.ErrorS(err, "failed to list orphan artifacts")
		return
	}
	removed := 0
	for _, artifactId := range orphans {
		if err = w.scheduler.store.DeleteOrphanArtifact(ctx, artifactId); err != nil {
			klog.ErrorS(err, "failed to delete orphan artifact", "artifact", artifactId)
			continue
		}
		removed++
	}
	if removed > 0 {
		klog.Infof("artifact sweep removed %d orphaned artifacts", removed)
	}
}

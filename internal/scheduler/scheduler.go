// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs the periodic maintenance of Prepify: pruning old
// test attempts and cache log entries, and keeping the category snapshot
// warm in Valkey.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"prepify/internal/models"
)

// jobTimeout bounds a single maintenance run.
const jobTimeout = 2 * time.Minute

// Pruner deletes rows older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Warmer reloads the category snapshot, filling the cache on a miss.
type Warmer interface {
	Snapshot(ctx context.Context) ([]models.Category, error)
}

// PruneResult counts the rows removed by one prune run.
type PruneResult struct {
	Attempts int64
	CacheLog int64
}

// Maintenance holds the jobs. CacheLog and Categories may be nil.
type Maintenance struct {
	Attempts   Pruner
	CacheLog   Pruner
	Categories Warmer
	Retention  time.Duration

	now func() time.Time
}

// Prune removes attempts and cache log entries older than Retention.
// Both tables are pruned even when the first one fails.
func (m *Maintenance) Prune(ctx context.Context) (PruneResult, error) {
	if m.Retention <= 0 {
		return PruneResult{}, fmt.Errorf("retention must be positive, got %s", m.Retention)
	}
	cutoff := m.clock().Add(-m.Retention)

	var res PruneResult
	var errs []error
	if m.Attempts != nil {
		n, err := m.Attempts.PruneBefore(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune attempts: %w", err))
		}
		res.Attempts = n
	}
	if m.CacheLog != nil {
		n, err := m.CacheLog.PruneBefore(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune cache log: %w", err))
		}
		res.CacheLog = n
	}
	return res, errors.Join(errs...)
}

// WarmCategories loads the category snapshot so the next request finds it
// cached.
func (m *Maintenance) WarmCategories(ctx context.Context) (int, error) {
	if m.Categories == nil {
		return 0, nil
	}
	records, err := m.Categories.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm categories: %w", err)
	}
	return len(records), nil
}

func (m *Maintenance) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// Scheduler wraps a cron runner with seconds precision.
type Scheduler struct {
	cron *cron.Cron
	m    *Maintenance
}

// New creates a scheduler for m. A nil loc means UTC.
func New(m *Maintenance, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		m:    m,
	}
}

// SchedulePrune registers the prune job on a six-field cron spec, e.g.
// "0 30 3 * * *" for 03:30:00 every day.
func (s *Scheduler) SchedulePrune(spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, s.runPrune)
	if err != nil {
		return 0, fmt.Errorf("schedule prune %q: %w", spec, err)
	}
	return id, nil
}

// ScheduleWarm reloads the category snapshot every interval.
func (s *Scheduler) ScheduleWarm(interval time.Duration) (cron.EntryID, error) {
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		return 0, fmt.Errorf("warm interval must be at least 1s, got %s", interval)
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), s.runWarm)
}

// Start runs the scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := s.m.Prune(ctx)
	if err != nil {
		slog.Error("scheduled prune failed", "error", err)
	}
	slog.Info("scheduled prune finished", "attempts", res.Attempts, "cache_log", res.CacheLog)
}

func (s *Scheduler) runWarm() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.m.WarmCategories(ctx)
	if err != nil {
		slog.Warn("category warm-up failed", "error", err)
		return
	}
	slog.Debug("category snapshot warmed", "categories", n)
}

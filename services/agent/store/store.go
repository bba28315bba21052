// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists jobs and step audit records in Badger. Records
// carry a 24h TTL so the store self-prunes; the agent is an operational
// tool, not an archive.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianAgent/services/agent/executor"
)

// retention bounds how long job and step records survive.
const retention = 24 * time.Hour

// ErrJobNotFound reports a lookup for an unknown or expired job.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

// Job is the persisted view of one agent run.
type Job struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Prompt      string    `json:"prompt"`
	Status      JobStatus `json:"status"`
	FinalOutput string    `json:"final_output,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is a Badger-backed job and step store.
//
// Thread Safety: Safe for concurrent use; Badger transactions provide
// the isolation.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at the given path. An empty path opens
// an in-memory store, used by tests and the one-shot CLI mode.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening job store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open Badger handle. The caller keeps
// ownership of the handle's lifecycle.
func NewWithDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func jobKey(jobID string) []byte {
	return []byte("job:" + jobID)
}

func stepKey(jobID string, stepNumber int) []byte {
	return []byte(fmt.Sprintf("step:%s:%04d", jobID, stepNumber))
}

func stepPrefix(jobID string) []byte {
	return []byte("step:" + jobID + ":")
}

// CreateJob persists a new job in the queued state.
func (s *Store) CreateJob(_ context.Context, job Job) error {
	now := time.Now().UTC()
	job.Status = JobQueued
	job.CreatedAt = now
	job.UpdatedAt = now
	return s.putJSON(jobKey(job.ID), job)
}

// UpdateJob applies mutate to the stored job inside one transaction.
func (s *Store) UpdateJob(_ context.Context, jobID string, mutate func(*Job)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(jobID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("loading job %s: %w", jobID, err)
		}

		var job Job
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		}); err != nil {
			return fmt.Errorf("decoding job %s: %w", jobID, err)
		}

		mutate(&job)
		job.UpdatedAt = time.Now().UTC()

		encoded, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encoding job %s: %w", jobID, err)
		}
		return txn.SetEntry(badger.NewEntry(jobKey(jobID), encoded).WithTTL(retention))
	})
}

// GetJob loads a job by ID.
func (s *Store) GetJob(_ context.Context, jobID string) (Job, error) {
	var job Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(jobKey(jobID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("loading job %s: %w", jobID, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	return job, err
}

// SaveStep upserts one step execution record. Implements executor.Sink.
func (s *Store) SaveStep(_ context.Context, jobID string, record executor.StepExecutionRecord) error {
	return s.putJSON(stepKey(jobID, record.StepNumber), record)
}

// SaveFinalOutput stores the synthesized payload on the job record.
// Implements executor.Sink.
func (s *Store) SaveFinalOutput(ctx context.Context, jobID string, finalOutput string) error {
	return s.UpdateJob(ctx, jobID, func(job *Job) {
		job.FinalOutput = finalOutput
	})
}

// ListSteps returns a job's step records ordered by step number. The
// zero-padded key format makes Badger's lexicographic iteration order
// the step order.
func (s *Store) ListSteps(_ context.Context, jobID string) ([]executor.StepExecutionRecord, error) {
	var records []executor.StepExecutionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = stepPrefix(jobID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record executor.StepExecutionRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return fmt.Errorf("decoding step record: %w", err)
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

func (s *Store) putJSON(key []byte, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, encoded).WithTTL(retention))
	})
}

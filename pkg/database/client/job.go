/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"k8s.io/klog/v2"

	dbutils "github.com/AMD-AIG-AIMA/nexus/pkg/database/utils"
	nexuserrors "github.com/AMD-AIG-AIMA/nexus/pkg/errors"
	jobv "github.com/AMD-AIG-AIMA/nexus/pkg/job"
	jsonutils "github.com/AMD-AIG-AIMA/nexus/pkg/utils/json"
)

const (
	TJob = "job"

	uniqueViolation = "23505"
)

var (
	getJobCmd          = fmt.Sprintf(`SELECT * FROM %s WHERE job_id = $1 LIMIT 1`, TJob)
	getJobForUpdateCmd = fmt.Sprintf(`SELECT * FROM %s WHERE job_id = $1 LIMIT 1 FOR UPDATE`, TJob)
	insertJobFormat    = `INSERT INTO ` + TJob + ` (%s) VALUES (%s)`
	deleteJobCmd       = fmt.Sprintf(`DELETE FROM %s WHERE job_id = $1`, TJob)
	claimJobCmd        = fmt.Sprintf(`UPDATE %s SET node = $1 WHERE job_id = $2 AND node IS NULL AND status = '%s'`,
		TJob, jobv.StatusQueued)
	updateJobCmd = fmt.Sprintf(`UPDATE %s
		SET command = :command,
		    status = :status,
		    priority = :priority,
		    env = :env,
		    node = :node,
		    notification_messages = :notification_messages,
		    pid = :pid,
		    dir = :dir,
		    started_at = :started_at,
		    gpu_idxs_assigned = :gpu_idxs_assigned,
		    wandb_url = :wandb_url,
		    marked_for_kill = :marked_for_kill,
		    completed_at = :completed_at,
		    exit_code = :exit_code,
		    error_message = :error_message,
		    session_name = :session_name
		WHERE job_id = :job_id`, TJob)
)

// cvtJobRow converts a persisted row to the domain form.
func cvtJobRow(row *Job) *jobv.Job {
	if row == nil {
		return nil
	}
	j := &jobv.Job{
		Id:                   row.JobId,
		Command:              row.Command,
		ArtifactId:           row.ArtifactId,
		Status:               jobv.Status(row.Status),
		CreatedAt:            row.CreatedAt,
		Priority:             row.Priority,
		NumGpus:              row.NumGpus,
		MarkedForKill:        row.MarkedForKill,
		IgnoreBlacklist:      row.IgnoreBlacklist,
		UserName:             dbutils.ParseNullString(row.UserName),
		SessionName:          dbutils.ParseNullString(row.SessionName),
		Integrations:         splitList(dbutils.ParseNullString(row.Integrations)),
		Notifications:        splitList(dbutils.ParseNullString(row.Notifications)),
		GpuIdxs:              splitInts(dbutils.ParseNullString(row.GpuIdxs)),
		GpuIdxsAssigned:      splitInts(dbutils.ParseNullString(row.GpuIdxsAssigned)),
		Env:                  jsonutils.UnmarshalMapSilently(dbutils.ParseNullString(row.Env)),
		NotificationMessages: jsonutils.UnmarshalMapSilently(dbutils.ParseNullString(row.NotificationMessages)),
		Pid:                  dbutils.ParseNullInt(row.Pid),
		ExitCode:             dbutils.ParseNullInt(row.ExitCode),
		StartedAt:            dbutils.ParseNullFloat(row.StartedAt),
		CompletedAt:          dbutils.ParseNullFloat(row.CompletedAt),
	}
	j.GitRepoUrl = optString(row.GitRepoUrl.String, row.GitRepoUrl.Valid)
	j.GitBranch = optString(row.GitBranch.String, row.GitBranch.Valid)
	j.Node = optString(row.Node.String, row.Node.Valid)
	j.Jobrc = optString(row.Jobrc.String, row.Jobrc.Valid)
	j.Dir = optString(row.Dir.String, row.Dir.Valid)
	j.WandbUrl = optString(row.WandbUrl.String, row.WandbUrl.Valid)
	j.ErrorMessage = optString(row.ErrorMessage.String, row.ErrorMessage.Valid)
	return j
}

// cvtJobRecord converts a domain job to its persisted row form.
func cvtJobRecord(j *jobv.Job) *Job {
	if j == nil {
		return nil
	}
	return &Job{
		JobId:                j.Id,
		Command:              j.Command,
		ArtifactId:           j.ArtifactId,
		GitRepoUrl:           nullOpt(j.GitRepoUrl),
		GitBranch:            nullOpt(j.GitBranch),
		Status:               string(j.Status),
		CreatedAt:            j.CreatedAt,
		Priority:             j.Priority,
		NumGpus:              j.NumGpus,
		Env:                  dbutils.NullString(marshalMap(j.Env)),
		Node:                 nullOpt(j.Node),
		Jobrc:                nullOpt(j.Jobrc),
		Integrations:         dbutils.NullString(strings.Join(j.Integrations, ",")),
		Notifications:        dbutils.NullString(strings.Join(j.Notifications, ",")),
		NotificationMessages: dbutils.NullString(marshalMap(j.NotificationMessages)),
		Pid:                  dbutils.NullInt(j.Pid),
		Dir:                  nullOpt(j.Dir),
		StartedAt:            dbutils.NullFloat(j.StartedAt),
		GpuIdxs:              dbutils.NullString(joinInts(j.GpuIdxs)),
		GpuIdxsAssigned:      dbutils.NullString(joinInts(j.GpuIdxsAssigned)),
		WandbUrl:             nullOpt(j.WandbUrl),
		MarkedForKill:        j.MarkedForKill,
		CompletedAt:          dbutils.NullFloat(j.CompletedAt),
		ExitCode:             dbutils.NullInt(j.ExitCode),
		ErrorMessage:         nullOpt(j.ErrorMessage),
		UserName:             dbutils.NullString(j.UserName),
		IgnoreBlacklist:      j.IgnoreBlacklist,
		SessionName:          dbutils.NullString(j.SessionName),
	}
}

// InsertJob persists a new job record. A duplicate id reports AlreadyExist.
func (c *Client) InsertJob(ctx context.Context, j *jobv.Job) error {
	if j == nil {
		return nexuserrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	return insertJob(ctx, db, j)
}

// InsertJob persists a new job record inside the transaction.
func (t *Tx) InsertJob(ctx context.Context, j *jobv.Job) error {
	if j == nil {
		return nexuserrors.NewBadRequest("the input is empty")
	}
	return insertJob(ctx, t.tx, j)
}

func insertJob(ctx context.Context, e sqlx.ExtContext, j *jobv.Job) error {
	row := cvtJobRecord(j)
	_, err := sqlx.NamedExecContext(ctx, e, generateCommand(*row, insertJobFormat, "id"), row)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return nexuserrors.NewAlreadyExist(fmt.Sprintf("job %s already exists", j.Id))
		}
		klog.ErrorS(err, "failed to insert job", "id", j.Id)
		return nexuserrors.NewDatabaseError(err.Error())
	}
	return nil
}

// SelectJobs retrieves multiple job records.
func (c *Client) SelectJobs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*jobv.Job, error) {
	startTime := time.Now().UTC()
	defer func() {
		if query != nil {
			strQuery := dbutils.CvtToSqlStr(query)
			klog.V(4).Infof("select job, query: %s, orderBy: %v, limit: %d, offset: %d, cost (%v)",
				strQuery, orderBy, limit, offset, time.Since(startTime))
		}
	}()
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	if c.RequestTimeout > 0 {
		ctx2, cancel := context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
		ctx = ctx2
	}
	return selectJobs(ctx, db, query, orderBy, limit, offset, false)
}

// SelectJobs retrieves multiple job records inside the transaction, locking
// the matched rows.
func (t *Tx) SelectJobs(ctx context.Context, query sqrl.Sqlizer, orderBy []string, limit, offset int) ([]*jobv.Job, error) {
	return selectJobs(ctx, t.tx, query, orderBy, limit, offset, true)
}

func selectJobs(ctx context.Context, q sqlx.ExtContext, query sqrl.Sqlizer, orderBy []string,
	limit, offset int, forUpdate bool) ([]*jobv.Job, error) {
	builder := sqrl.Select("*").PlaceholderFormat(sqrl.Dollar).
		From(TJob).
		Where(query).
		OrderBy(orderBy...)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, nexuserrors.NewDatabaseError(err.Error())
	}
	var rows []*Job
	if err = sqlx.SelectContext(ctx, q, &rows, sql, args...); err != nil {
		klog.ErrorS(err, "failed to select jobs")
		return nil, nexuserrors.NewDatabaseError(err.Error())
	}
	jobs := make([]*jobv.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, cvtJobRow(row))
	}
	return jobs, nil
}

// CountJobs returns the total count of jobs matching the criteria.
func (c *Client) CountJobs(ctx context.Context, query sqrl.Sqlizer) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	sql, args, err := sqrl.Select("COUNT(*)").PlaceholderFormat(sqrl.Dollar).From(TJob).Where(query).ToSql()
	if err != nil {
		return 0, nexuserrors.NewDatabaseError(err.Error())
	}
	var cnt int
	if err = db.GetContext(ctx, &cnt, sql, args...); err != nil {
		return 0, nexuserrors.NewDatabaseError(err.Error())
	}
	return cnt, nil
}

// GetJob retrieves a job by id.
func (c *Client) GetJob(ctx context.Context, jobId string) (*jobv.Job, error) {
	if jobId == "" {
		return nil, nexuserrors.NewBadRequest("jobId is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	return getJob(ctx, db, jobId, getJobCmd)
}

// GetJobForUpdate retrieves a job by id inside the transaction, locking the
// row until commit.
func (t *Tx) GetJobForUpdate(ctx context.Context, jobId string) (*jobv.Job, error) {
	if jobId == "" {
		return nil, nexuserrors.NewBadRequest("jobId is empty")
	}
	return getJob(ctx, t.tx, jobId, getJobForUpdateCmd)
}

func getJob(ctx context.Context, q sqlx.ExtContext, jobId, cmd string) (*jobv.Job, error) {
	var rows []*Job
	if err := sqlx.SelectContext(ctx, q, &rows, cmd, jobId); err != nil {
		klog.ErrorS(err, "failed to select job", "id", jobId)
		return nil, nexuserrors.NewDatabaseError(err.Error())
	}
	if len(rows) == 0 {
		return nil, nexuserrors.NewNotFound(nexuserrors.JobKind, jobId)
	}
	return cvtJobRow(rows[0]), nil
}

// UpdateJob writes back the mutable columns of a job record.
func (c *Client) UpdateJob(ctx context.Context, j *jobv.Job) error {
	if j == nil {
		return nexuserrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	return updateJob(ctx, db, j)
}

// UpdateJob writes back the mutable columns of a job record inside the
// transaction.
func (t *Tx) UpdateJob(ctx context.Context, j *jobv.Job) error {
	if j == nil {
		return nexuserrors.NewBadRequest("the input is empty")
	}
	return updateJob(ctx, t.tx, j)
}

func updateJob(ctx context.Context, e sqlx.ExtContext, j *jobv.Job) error {
	row := cvtJobRecord(j)
	res, err := sqlx.NamedExecContext(ctx, e, updateJobCmd, row)
	if err != nil {
		klog.ErrorS(err, "failed to update job", "id", j.Id)
		return nexuserrors.NewDatabaseError(err.Error())
	}
	// a vanished row means someone deleted the job out from under us
	if n, _ := res.RowsAffected(); n == 0 {
		klog.Errorf("update of job %s matched no rows, the record is gone", j.Id)
		return nexuserrors.NewNotFound(nexuserrors.JobKind, j.Id)
	}
	return nil
}

// ClaimJob attempts the compare-and-set that assigns a queued, unowned job to
// a node. It returns false when another node won the race or the job left the
// queue.
func (t *Tx) ClaimJob(ctx context.Context, jobId, node string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, claimJobCmd, node, jobId)
	if err != nil {
		klog.ErrorS(err, "failed to claim job", "id", jobId, "node", node)
		return false, nexuserrors.NewDatabaseError(err.Error())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nexuserrors.NewDatabaseError(err.Error())
	}
	return n == 1, nil
}

// DeleteJob removes a job record inside the transaction.
func (t *Tx) DeleteJob(ctx context.Context, jobId string) error {
	res, err := t.tx.ExecContext(ctx, deleteJobCmd, jobId)
	if err != nil {
		klog.ErrorS(err, "failed to delete job", "id", jobId)
		return nexuserrors.NewDatabaseError(err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nexuserrors.NewNotFound(nexuserrors.JobKind, jobId)
	}
	return nil
}

func optString(v string, valid bool) *string {
	if !valid {
		return nil
	}
	return &v
}

func nullOpt(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func marshalMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	return string(jsonutils.MarshalSilently(m))
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) []int {
	var result []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		result = append(result, n)
	}
	return result
}

func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

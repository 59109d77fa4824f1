package sqlinline

const QInsertJob = `--sql 9a1358a5-7efd-4f38-bcd9-785fa5802571
insert into generation_jobs (
    id, project_id, schedule_id, kind, trigger_type, status,
    external_job_id, scheduled_at, started_at, images_generated
)
values (
    $1::uuid, nullif($2, '')::uuid, nullif($3, '')::uuid, $4, $5, $6,
    nullif($7, ''), $8, $9, 0
)
returning created_at;
`

const QMarkJobRunning = `--sql 57b005ec-1552-44f6-828c-c3dc5568b05f
update generation_jobs
set status = 'running',
    started_at = $2,
    error_message = null
where id = $1::uuid
  and status not in ('processing', 'completed', 'failed');
`

const QMarkJobProcessing = `--sql 8694ef77-6361-45f2-bc41-fd4beb0a10fe
update generation_jobs
set status = 'processing',
    external_job_id = $2,
    started_at = coalesce(started_at, $3)
where id = $1::uuid
  and status not in ('completed', 'failed');
`

const QCompleteJob = `--sql d6683fd2-dc1d-4f07-8552-85f5f64fdd0e
update generation_jobs
set status = 'completed',
    external_job_id = coalesce(nullif($2, ''), external_job_id),
    images_generated = $3,
    completed_at = $4,
    error_message = null
where id = $1::uuid
  and status not in ('completed', 'failed');
`

const QFailJob = `--sql a658a8f7-fc9d-48db-b877-5dd6d5cee54b
update generation_jobs
set status = 'failed',
    error_message = $2,
    completed_at = $3
where id = $1::uuid
  and status not in ('completed', 'failed');
`

const QSelectJobByExternalID = `--sql 3942a9f7-dae4-4110-b0c2-067fb6e8aa15
select id::text,
       coalesce(project_id::text, ''),
       coalesce(schedule_id::text, ''),
       kind,
       trigger_type,
       status,
       coalesce(external_job_id, ''),
       scheduled_at,
       started_at,
       completed_at,
       images_generated,
       coalesce(error_message, ''),
       created_at
from generation_jobs
where external_job_id = $1;
`

const QListPendingJobs = `--sql 865d393d-7a35-42b1-aee9-eb32c947ff35
select id::text,
       coalesce(project_id::text, ''),
       coalesce(schedule_id::text, ''),
       kind,
       trigger_type,
       status,
       coalesce(external_job_id, ''),
       scheduled_at,
       started_at,
       completed_at,
       images_generated,
       coalesce(error_message, ''),
       created_at
from generation_jobs
where status in ('running', 'processing')
  and external_job_id is not null
order by started_at asc
limit $1;
`

const QFailStaleRunningJobs = `--sql 1055c2a9-1e9f-4c60-8341-1a8187e8ac99
update generation_jobs
set status = 'failed',
    error_message = $2,
    completed_at = $3
where status = 'running'
  and external_job_id is null
  and started_at < $1
returning id::text, kind;
`

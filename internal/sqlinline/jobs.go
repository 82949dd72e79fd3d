package sqlinline

const QInsertJob = `--sql 939996fb-1e3a-4386-b2af-a2a249162895
insert into jobs(id, site_id, topic, length, language, requested_images, status, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::int, 'pending', now(), now());
`

const QSelectJob = `--sql c1505329-fa6a-4d49-86ac-a65adf068950
select id, site_id, topic, length, language, requested_images, status,
       coalesce(error, ''), cancel_requested, usage_recorded, requeues,
       created_at, updated_at, finished_at
from jobs
where id = $1::uuid;
`

const QMarkJobRunning = `--sql 382626c2-cfb5-4252-9fe3-7245ca72d1c1
update jobs
set status = 'running', updated_at = now()
where id = $1::uuid and status = 'pending';
`

const QMarkJobFinished = `--sql b4538752-a593-4bc9-8955-94b6681cff45
update jobs
set status = $2::text, error = nullif($3::text, ''), finished_at = now(), updated_at = now()
where id = $1::uuid;
`

const QRequestJobCancel = `--sql 225e7264-4235-42f1-bf9e-941cb25dad10
update jobs
set cancel_requested = true, updated_at = now()
where id = $1::uuid and status in ('pending', 'running');
`

// Reading the cancel flag doubles as the worker's heartbeat: the touch of
// updated_at keeps a long-running job out of the stale sweep's reach.
const QJobCancelCheck = `--sql 43e19c09-7ceb-459a-8ad6-0e8eef9383bd
update jobs
set updated_at = now()
where id = $1::uuid
returning cancel_requested;
`

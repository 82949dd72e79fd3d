package sqlinline

const QWorkerClaimJob = `--sql 7558aa19-bcdd-46cb-b02f-702b3feb367c
with next_job as (
    select id
    from jobs
    where status = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update jobs
    set status = 'running', updated_at = now()
    where id in (select id from next_job)
    returning id, site_id, topic, length, language, requested_images
)
select * from claimed;
`

// Stale jobs go back to the queue once; a second strike fails them.
const QRequeueStaleJobs = `--sql 65b7f935-4200-41a5-a368-38944d2d78e0
update jobs
set status = 'pending', requeues = requeues + 1, updated_at = now()
where status = 'running' and updated_at < now() - $1::interval and requeues = 0;
`

const QFailStaleJobs = `--sql a52331e0-8848-4129-9437-19770ae60093
update jobs
set status = 'failed', error = 'abandoned after stale requeue', finished_at = now(), updated_at = now()
where status = 'running' and updated_at < now() - $1::interval and requeues > 0;
`

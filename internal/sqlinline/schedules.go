package sqlinline

const QInsertSchedule = `--sql 8b54a194-705e-4e6e-9507-0c635ca54706
insert into scheduled_jobs(id, site_id, title, description, context, goal,
                           publish_at, generate_images, status, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text,
        $7::timestamptz, $8::boolean, 'pending', now(), now());
`

const QSelectSchedule = `--sql 070bf959-e6fb-464f-bc22-c5037123d78f
select id, site_id, title, coalesce(description, ''), coalesce(context, ''), coalesce(goal, ''),
       publish_at, generate_images, status, job_id, coalesce(error, ''), created_at, updated_at
from scheduled_jobs
where id = $1::uuid;
`

const QSelectUpcomingSchedules = `--sql 340663fb-8f47-47a7-bc96-1c058cad600f
select id, site_id, title, coalesce(description, ''), coalesce(context, ''), coalesce(goal, ''),
       publish_at, generate_images, status, job_id, coalesce(error, ''), created_at, updated_at
from scheduled_jobs
where site_id = $1::uuid
  and publish_at >= now()
  and publish_at <= now() + $2::interval
order by publish_at asc;
`

// Only pending schedules may change; processing and finished ones are frozen.
const QUpdateSchedule = `--sql 047af1d0-66cf-4efd-ba03-bdaf25aa63bf
update scheduled_jobs
set title = $2::text, description = $3::text, publish_at = $4::timestamptz,
    generate_images = $5::boolean, updated_at = now()
where id = $1::uuid and status = 'pending';
`

const QDeleteSchedule = `--sql 19153ba6-81eb-40cf-acac-9ad5f498c307
delete from scheduled_jobs
where id = $1::uuid and status not in ('processing', 'completed');
`

const QClaimDueSchedules = `--sql a2349238-8084-4440-af72-92220d81aeaf
with due as (
    select id
    from scheduled_jobs
    where status = 'pending' and publish_at <= now()
    order by publish_at asc
    for update skip locked
)
update scheduled_jobs
set status = 'processing', updated_at = now()
where id in (select id from due)
returning id, site_id, title, coalesce(description, ''), coalesce(context, ''), coalesce(goal, ''),
          publish_at, generate_images;
`

const QFinishSchedule = `--sql 17e83168-e821-4a05-a4b5-57e8f9bcaf36
update scheduled_jobs
set status = $2::text, job_id = $3::uuid, error = nullif($4::text, ''), updated_at = now()
where id = $1::uuid;
`

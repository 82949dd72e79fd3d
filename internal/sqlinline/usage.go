package sqlinline

const QSelectUsage = `--sql 0709d9a3-cf4c-4547-aecb-152fd81ff1da
select coalesce(used, 0)
from usage
where site_id = $1::uuid and year_month = $2::text;
`

// Flips the per-job guard and increments the monthly counter in one
// statement. The guard makes the increment idempotent per job; the conflict
// arm keeps concurrent completions for the same site+month lossless.
const QRecordUsageOnce = `--sql 94c0b477-7116-4434-9cce-1d540b693227
with guard as (
    update jobs
    set usage_recorded = true, updated_at = now()
    where id = $1::uuid and usage_recorded = false
    returning site_id
)
insert into usage(site_id, year_month, used)
select site_id, $2::text, 1 from guard
on conflict (site_id, year_month)
do update set used = usage.used + 1;
`

const QResetUsage = `--sql e3abd9c1-3c25-45d8-ad69-d4b5f9c999e2
update usage
set used = 0
where site_id = $1::uuid and year_month = $2::text;
`

const QListUsageForMonth = `--sql 3643e941-e963-4f5f-aa99-85bb2aeec136
select s.id, s.domain, p.name, coalesce(u.used, 0), p.monthly_limit
from sites s
join licenses l on l.id = s.license_id
join plans p on p.id = l.plan_id
left join usage u on u.site_id = s.id and u.year_month = $1::text
order by s.domain;
`

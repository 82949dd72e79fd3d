package sqlinline

const QSelectSite = `--sql e0558fe4-a331-4e3b-9675-314fef178c74
select id, license_id, domain, site_secret, created_at
from sites
where id = $1::uuid;
`

const QSelectPlanForSite = `--sql 511b9a09-2bec-4861-bd19-4946d1c6ddf0
select p.id, p.name, p.monthly_limit, p.max_images_per_article, p.price_cents
from sites s
join licenses l on l.id = s.license_id and l.status = 'active'
join plans p on p.id = l.plan_id
where s.id = $1::uuid;
`

const QSelectLicenseByKey = `--sql 80609e41-6d52-4816-818a-e202473e9fbc
select id, key, plan_id, status, created_at
from licenses
where key = $1::text;
`

const QSelectPlanForLicense = `--sql f6fb7d54-115d-4c58-9f0e-3d9d812b955c
select p.id, p.name, p.monthly_limit, p.max_images_per_article, p.price_cents
from licenses l
join plans p on p.id = l.plan_id
where l.id = $1::uuid;
`

const QSelectSiteForDomain = `--sql f35fad79-49af-418e-b212-963671377e02
select id, license_id, domain, site_secret, created_at
from sites
where license_id = $1::uuid and domain = $2::text;
`

const QInsertSite = `--sql bc41b5f1-0b7c-463d-8170-b690ed62bd29
insert into sites(id, license_id, domain, site_secret, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, now());
`

const QAssignLicensePlan = `--sql e30ac27b-723c-456e-ba2b-83c97128eaca
update licenses
set plan_id = (select id from plans where lower(name) = lower($2::text))
where key = $1::text
returning id;
`

package sqlinline

const QSelectProject = `--sql 53f24ad3-cfd4-450d-bcb3-4c2d848b5e87
select id::text,
       coalesce(user_id::text, ''),
       coalesce(name, ''),
       coalesce(prompt, ''),
       coalesce(reference_image_url, ''),
       schedule_enabled,
       schedule_interval_minutes,
       schedule_max_images,
       schedule_duration_days,
       last_generation_at,
       created_at
from projects
where id = $1::uuid;
`

const QTouchProjectLastGeneration = `--sql 176eab7b-4516-4f02-b8b6-52a25956b7a7
update projects
set last_generation_at = $2,
    updated_at = now()
where id = $1::uuid;
`

// QClaimDueProjects selects projects whose schedule is due and bumps their
// last_generation_at so a concurrent scheduler skips them.
const QClaimDueProjects = `--sql 49a2476b-d6e1-48ad-83d5-04bd7f24a401
with due as (
    select p.id
    from projects p
    where p.schedule_enabled
      and p.schedule_interval_minutes > 0
      and (p.last_generation_at is null
           or p.last_generation_at + make_interval(mins => p.schedule_interval_minutes) <= $2)
      and (p.schedule_max_images <= 0
           or (select count(*) from generated_images gi where gi.project_id = p.id) < p.schedule_max_images)
      and (p.schedule_duration_days <= 0
           or p.created_at + make_interval(days => p.schedule_duration_days) > $2)
    order by p.last_generation_at asc nulls first
    for update skip locked
    limit $1
),
claimed as (
    update projects
    set last_generation_at = $2, updated_at = now()
    where id in (select id from due)
    returning id, user_id, name, prompt, reference_image_url,
              schedule_enabled, schedule_interval_minutes, schedule_max_images,
              schedule_duration_days, last_generation_at, created_at
)
select id::text,
       coalesce(user_id::text, ''),
       coalesce(name, ''),
       coalesce(prompt, ''),
       coalesce(reference_image_url, ''),
       schedule_enabled,
       schedule_interval_minutes,
       schedule_max_images,
       schedule_duration_days,
       last_generation_at,
       created_at
from claimed;
`

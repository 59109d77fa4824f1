package sqlinline

const QSelectSchedule = `--sql aaa3db0d-b715-4d27-9c8e-788520998774
select id::text,
       project_id::text,
       coalesce(user_id::text, ''),
       enabled,
       interval_minutes,
       created_at
from schedules
where id = $1::uuid;
`

const QSelectActiveScheduleForProject = `--sql 79e84075-b14b-4d98-893f-f2f20f93a2e4
select id::text,
       project_id::text,
       coalesce(user_id::text, ''),
       enabled,
       interval_minutes,
       created_at
from schedules
where project_id = $1::uuid
  and enabled
order by created_at desc
limit 1;
`

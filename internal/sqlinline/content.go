package sqlinline

const QInsertImage = `--sql 15fb0f60-0b42-4379-b4bc-03b4bf8b5c9e
insert into generated_images (
    id, job_id, project_id, image_url, prompt, model,
    generation_time_seconds, metadata
)
values ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, $8::jsonb)
returning created_at;
`

const QInsertContent = `--sql 5bdd0686-8e37-41a8-8186-307216568488
insert into generated_content (
    id, job_id, schedule_id, user_id, task_id, content_type, status,
    prompt, model, metadata
)
values ($1::uuid, $2::uuid, nullif($3, '')::uuid, nullif($4, '')::uuid, $5, $6, $7, $8, $9, $10::jsonb)
returning created_at;
`

const QCompleteContentByJob = `--sql 70917e4c-cb53-4d08-a49e-fdbaea96ad56
update generated_content
set status = 'completed',
    url = $2,
    generation_time_seconds = $3,
    updated_at = $4
where job_id = $1::uuid
  and status = 'processing';
`

const QFailContentByJob = `--sql a4f42b7c-fa5a-4394-8a6b-982a096b65c3
update generated_content
set status = 'failed',
    metadata = metadata || jsonb_build_object('error', $2::text),
    updated_at = $3
where job_id = $1::uuid
  and status = 'processing';
`

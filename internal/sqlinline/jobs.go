package sqlinline

const QInsertGenerationJob = `--sql 98e70375-f31d-4643-82ec-a90bc9dbf7c1
insert into generation_jobs (
    id, capture_id, kind, remote_id, status, provider, prompt,
    artifact_key, error_message, created_at, updated_at
)
values (
    $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::text,
    '', '', $8::timestamptz, $8::timestamptz
);
`

const QUpdateGenerationJobStatus = `--sql 4e90fb6c-6fae-4643-be2a-8c28033fac0f
update generation_jobs
set status = $2::text,
    error_message = $3::text,
    artifact_key = case when $4::text = '' then artifact_key else $4::text end,
    updated_at = now()
where id = $1::uuid;
`

const QSelectGenerationJobByID = `--sql 696c20d0-826b-41cd-92ff-72dded3e517e
select id, capture_id, kind, remote_id, status, provider, prompt,
       artifact_key, error_message, created_at, updated_at
from generation_jobs
where id = $1::uuid;
`

const QSelectResumableJobs = `--sql b214e478-233a-472c-839d-222316fb0b69
select id, capture_id, kind, remote_id, status, provider, prompt,
       artifact_key, error_message, created_at, updated_at
from generation_jobs
where status in ('pending', 'polling')
order by created_at asc;
`

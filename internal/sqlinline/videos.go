package sqlinline

const QInsertVideoJob = `--sql 5c2a8e17-d3b9-4f06-a4e1-9b7c6d2f0e83
insert into video_jobs (id, view_id, model, prompt, aspect_ratio, state, message, result_url, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::text, $5::text, $6::text, '', '', now(), now())
on conflict (id) do nothing;
`

const QFinishVideoJob = `--sql e81f4c0b-27a6-4d9e-b3f5-6a0c8d1e2b74
update video_jobs set
  state = $2::text,
  message = $3::text,
  result_url = $4::text,
  updated_at = now()
where id = $1::text;
`

const QSelectVideoJob = `--sql 9d4b7a62-1e8c-4f3a-b0d5-c27e6f91a4d8
select id, view_id, model, prompt, aspect_ratio, state, message, result_url, created_at, updated_at
from video_jobs
where id = $1::text
limit 1;
`

const QListVideoJobsByView = `--sql 0a7e3d95-6c1f-4b28-9e4d-d5f8a2b61c07
select id, view_id, model, prompt, aspect_ratio, state, message, result_url, created_at, updated_at
from video_jobs
where view_id = $1::text
order by created_at desc
limit $2::int;
`

package sqlinline

const QSelectIntegrationToken = `--sql 3f0c9b7e-52d1-4a8e-9c61-0b7d2e5a4f18
select token
from integration_tokens
where provider = $1::text
  and token <> ''
limit 1;
`

const QUpsertIntegrationToken = `--sql b6e2d4a1-9f3c-4c7e-8a25-71d0c3e9f642
insert into integration_tokens (provider, token, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
  token = excluded.token,
  properties = integration_tokens.properties || excluded.properties,
  updated_at = now();
`

package sqlinline

const QSelectIntegrationToken = `--sql a1005f16-4043-48b1-9311-11fc5f5f74ae
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql e20c3223-7bb7-4161-a4ff-96d5dff14a4c
insert into integration_tokens (id, provider, token, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, now(), now())
on conflict (provider) do update set
    token = excluded.token,
    updated_at = now();
`

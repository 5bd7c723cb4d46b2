// Package sqlinline holds the SQL statements used by the repositories. Each
// constant starts with a --sql marker so tooling can find and lint them.
package sqlinline

const QInsertGeneration = `--sql de647825-04d6-421e-913a-6b906945e805
insert into generations (
  id, user_id, type, sub_type, status, provider, model_id, remote_task_id,
  webhook_token, prompt, params_json, credits_cost, result_urls, fail_reason, fail_code
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
`

const generationColumns = `
  id, user_id, type, sub_type, status, provider, model_id, remote_task_id,
  webhook_token, prompt, params_json, credits_cost, result_urls, fail_reason,
  fail_code, created_at, updated_at`

const QSelectGenerationByID = `--sql 008cd93b-b735-4a5c-a705-0b14c496272d
select` + generationColumns + `
from generations
where id = $1;
`

const QSelectGenerationByRemoteTaskID = `--sql 62e802f2-ce4c-4e27-bdcd-91332c63f0ac
select` + generationColumns + `
from generations
where remote_task_id = $1;
`

const QSelectGenerationByWebhookToken = `--sql 678667cc-cdbb-4c0a-8435-02786fa2bdc3
select` + generationColumns + `
from generations
where webhook_token = $1;
`

const QUpdateGeneration = `--sql 98f91b72-ca94-44de-82c2-8b94b88784ee
update generations
set status = coalesce($2, status),
    provider = coalesce($3, provider),
    model_id = coalesce($4, model_id),
    remote_task_id = coalesce($5, remote_task_id),
    result_urls = coalesce($6, result_urls),
    fail_reason = coalesce($7, fail_reason),
    fail_code = coalesce($8, fail_code),
    updated_at = now()
where id = $1;
`

const QSelectProcessingGenerations = `--sql 06621a1d-6149-4233-96a1-5cf7ba37bc1a
select` + generationColumns + `
from generations
where status = $1
  and updated_at < $2
order by updated_at asc
limit $3;
`

package sqlinline

const QInsertArticle = `--sql 56592442-e22b-4693-9ad5-78b502ca0ffc
insert into articles(id, job_id, site_id, topic, language, article_html,
                     meta_title, meta_description, faq_json, schema_json,
                     image_urls_json, tokens_input, tokens_output,
                     image_cost_cents, status, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::uuid, $4::text, $5::text, $6::text,
        $7::text, $8::text, $9::jsonb, $10::jsonb,
        $11::jsonb, $12::int, $13::int,
        $14::int, $15::text, now(), now());
`

const QSelectArticleByJob = `--sql 4f5c3327-ad1c-4834-9c96-5dfa90f50df5
select id, job_id, site_id, topic, language, coalesce(article_html, ''),
       coalesce(meta_title, ''), coalesce(meta_description, ''),
       coalesce(faq_json, '[]'::jsonb), coalesce(schema_json, '{}'::jsonb),
       coalesce(image_urls_json, '[]'::jsonb), coalesce(tokens_input, 0),
       coalesce(tokens_output, 0), coalesce(image_cost_cents, 0), status,
       external_post_id, created_at, updated_at
from articles
where job_id = $1::uuid;
`

const QUpdateArticleStatus = `--sql fe148d1e-c0c4-469c-99c9-742800944f88
update articles
set status = $2::text, external_post_id = coalesce($3::bigint, external_post_id), updated_at = now()
where id = $1::uuid;
`

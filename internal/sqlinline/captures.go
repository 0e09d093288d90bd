package sqlinline

const QInsertCapture = `--sql 8242349e-f3e0-4e01-acaa-e6abc0ef5a00
insert into captures (
    id, image_key, edited_image_key, video_key,
    inspiration_text, persona, video_script, created_at
)
values (
    $1::uuid, $2::text, '', '',
    $3::text, $4::text, '', $5::timestamptz
);
`

const QSelectCaptureByID = `--sql d8a2d875-e4d4-4d99-af35-0af984115c75
select id, image_key, edited_image_key, video_key,
       inspiration_text, persona, video_script, created_at
from captures
where id = $1::uuid;
`

const QSelectCaptures = `--sql 7f33df1c-e2c4-4322-8ddc-f7d36d15e0dd
select id, image_key, edited_image_key, video_key,
       inspiration_text, persona, video_script, created_at
from captures
order by created_at desc
limit $1::int;
`

const QSetCaptureEditedImage = `--sql f311b4f8-4951-476e-a389-7be8a5bd65b9
update captures
set edited_image_key = $2::text
where id = $1::uuid;
`

const QSetCaptureVideo = `--sql aa180de0-7719-41e6-9122-605f4129a8ae
update captures
set video_key = $2::text
where id = $1::uuid;
`

const QSetCaptureVideoScript = `--sql 18f60f7b-b168-40c1-9138-0dc840e1aa63
update captures
set video_script = $2::text
where id = $1::uuid;
`

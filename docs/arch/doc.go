// Package arch documents how knote is put together.
//
// # Request flow
//
//	POST /note ─▶ controller.Note.Submit ─▶ service.Note.Submit
//	                                           ├─ publish: Render ─▶ dao.Store.Insert
//	                                           └─ upload:  NewFileID ─▶ blob.Sink.Store
//	GET /      ─▶ controller.Note.Index  ─▶ service.Note.ListAll ─▶ dao.Store.FindAll (reversed)
//
// # Backends
//
// The note store is either mongodb (collection `notes`) or a sqlite file,
// chosen by `settings.db.type`. Uploaded images go to a local directory served
// under /uploads/, or to a minio bucket, chosen by `settings.blob.type`.
//
// Both backends are built once in cmd and injected into the service.
// They are initialized concurrently at startup. The minio sink retries
// `BucketExists` every `settings.minio.reconnect_interval_seconds` until it
// succeeds, unless `settings.minio.reconnect_enabled` is false, in which case
// a single failure leaves uploads disabled while publishing keeps working.
//
// # Markdown
//
// With `settings.markdown.render_on_publish` enabled (the default), notes are
// rendered to html by gomarkdown with raw html dropped, and the page embeds
// them as is. Otherwise the raw text is stored and the page escapes it.
// Each note records which form it holds, so switching the option later
// keeps old notes displayable.
package arch

// Package api implements the REST client for the command-center backend.
//
// Every pull endpoint lives under /api. Non-success responses become
// *APIError values whose message is the server's "detail" field when
// the body carries one, else the HTTP status text; callers decide
// per-call whether to surface or swallow the error. Nothing here
// retries by default; the poll schedule is the retry mechanism.
package api

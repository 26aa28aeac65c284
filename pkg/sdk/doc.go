// Package sdk is a Go client for the portfolio agent HTTP API.
//
// It supports whole-answer requests and server-sent-event streaming,
// and mirrors the chat UI contract: starting a new stream supersedes
// and cancels the previous one.
package sdk

// Package web holds the static chat page served at the site root.
package web

import _ "embed"

// ChatPage is the browser chat client. It posts the form field msg to /get
// and renders the plain-text reply.
//
//go:embed chat.html
var ChatPage []byte

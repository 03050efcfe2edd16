// Package provider implements chat backends for the translation bridge.
package provider

import "github.com/ZaguanLabs/cozebridge"

// ChatBackend is an alias to the main package interface for convenience.
type ChatBackend = cozebridge.ChatBackend

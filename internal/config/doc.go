// Package config provides configuration for the arraytrie command.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority (applied by the caller)
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← ARRAYTRIE_LOGGING_LEVEL=debug
//	├─────────────────────────────┤
//	│  2. Config File             │  ← arraytrie.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Example file:
//
//	[logging]
//	level = "debug"
//
//	[script]
//	timeout = "2s"
//	opLimit = 1000000
//
//	[history]
//	maxEntries = 200
//
//	[watch]
//	debounce = "150ms"
//
//	[output]
//	format = "json"
//	color = false
//
// # Sub-packages
//
//   - loader: TOML file and environment variable loading into generic maps
package config

// Package config loads the demo process configuration: logger options, the
// dev wallet account, and the YAML chain definitions naming upstream RPC
// endpoints. The adapter core itself is configuration-free; everything here
// serves the embedding demo.
package config

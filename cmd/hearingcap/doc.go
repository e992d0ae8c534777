// Package main hosts the hearingcap CLI entrypoint and command graph.
//
// The Cobra command tree exposes one-shot stream detection, extraction and
// conversion, committee table lookups, hearing lifecycle maintenance against
// the configured store, and the foreground daemon. Configuration resolution
// and store access are centralized in commandContext so subcommands stay
// declarative; the work itself lives in the internal packages.
package main

// Package main hosts the streamguide CLI entrypoint and command graph.
//
// The Cobra command tree maps each pipeline mode to a command, serves the
// read API, drives the cron schedule, and prints catalog status. It resolves
// configuration once, opens the catalog (which applies the schema), and
// builds the logger so subcommands only choose what to run.
//
// Add behaviour to the internal packages first and surface it here through a
// dedicated command or flag.
package main

// Package logs reads the rotating JSON log written under paths.log_dir.
//
// Tail returns the last matching records with bounded memory and an offset
// to resume from; Follow polls from that offset until the context ends.
// Records can be narrowed to one pipeline run, stage, or minimum level so
// `streamguide logs --run <id>` shows a single run end to end.
package logs

// Package config loads the YAML configuration of a supportmesh deployment:
// the handoff detector lexicon, the specialist teams and the business units
// they own, escalation defaults, logging and the optional analysis model.
//
// Values decode over Default(), so a file only needs to name what it
// changes. SUPPORTMESH_* environment variables override the file, and a
// Watcher reloads the file when it changes on disk.
package config

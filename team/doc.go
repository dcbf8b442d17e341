// Package team provides in-process specialist team and orchestrator
// collaborators. Both carry a core.StateContainer and therefore satisfy
// core.StateProvider and core.StateUpdater.
package team

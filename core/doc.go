// Package core provides the collaborator contracts shared by the supportmesh
// packages. It defines the small capability interfaces through which the
// synchronization engine talks to the orchestrator and to specialist teams:
//
//   - Team (an addressable specialist unit)
//   - StateProvider / StateUpdater (access to a collaborator's state container)
//   - StateContainer (a concurrency safe key/value container implementation)
//   - Content / Part (role-based message content used by model requests)
//
// Concrete collaborators live in the team package; the engine itself lives in
// teamstate and escalation. Keeping the contracts here prevents those packages
// from depending on each other's implementations.
package core

// Package model defines the provider-agnostic text generation abstraction
// used by the model-backed escalation analyzer.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (Anthropic, OpenAI) implement Model in sub-packages so the
// escalation layer stays decoupled from vendor SDKs.
package model

// Package healthagent implements the health-agent service, a chat backend
// for men's health and fitness coaching.
//
// The service provides:
//   - Chat sessions with per-user ownership and message history
//   - Keyword routing to health, fitness, nutrition, inventory, order and report handlers
//   - LLM turns through Gemini or OpenAI-compatible backends
//   - Image classification for uploaded photos
//   - A WebSocket turn protocol and REST endpoints under /run and /chat
//   - JWT authentication with HS256 secrets or JWKS
//
// See cmd/server for the entry point.
package healthagent

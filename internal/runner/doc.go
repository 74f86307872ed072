// Package runner turns one user query into one final answer, alternating
// between the Anthropic Messages API and MCP tool invocations.
//
// Invariants:
//   - tool_use and the corresponding tool_result are kept adjacent in the
//     conversation; a dangling invocation is never resubmitted to the model.
//   - tool requests within one model response run strictly in source order,
//     never in parallel, so each result is visible to the model before the
//     next request is satisfied.
//   - the tool catalog is re-fetched before every model call; a tool the
//     server adds mid-conversation is usable on the very next turn.
//
// Flow:
//
//	user(text) -> assistant(tool_use) -> user(tool_result) -> assistant(text)
package runner

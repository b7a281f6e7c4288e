// Package agent bridges LLM function calling to the curator tools.
//
// # Dispatch Loop
//
// [Agent.Send] forwards user text to a [Provider]. When the provider answers with tool calls,
// each call is dispatched through the [tools.Registry] and the results are returned to the
// provider, repeating until it answers with text. Rounds are bounded; past the bound the
// unanswered calls receive an error result and Send fails with [shared.ErrMaxRounds].
//
// # Providers
//
// Two SDK shapes sit behind the one [Provider] interface:
//   - [GeminiProvider] : a chat session that keeps its own history
//   - [OpenAIProvider], [AnthropicProvider] : message arrays maintained by the adapter, with results
//     correlated to calls by identifier
//
// Tool declaration formats stay inside each adapter. Provider failures are wrapped with
// [shared.ErrUpstream], plus [shared.ErrQuotaExceeded] for HTTP 429 and [shared.ErrTimeout] on expiry.
package agent

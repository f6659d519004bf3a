// Package contracts/extraction defines the field-extraction contract.
// Extraction is read-only over the message body: it never talks to the
// mailbox or the table.
//
// Provider: LM Studio local server, OpenAI-compatible chat completions
// Pins: server version 0.3.16, model qwen3-8b (a mismatch is fatal at
//       construction, before any mailbox work starts)
package contracts

// Analyzer turns one message body into the four structured fields.

// Key operations:
//
// AnalyzeEmail:
//   POST {base_url}/v1/chat/completions
//   Body: { messages: [user], max_tokens, temperature, stream: false }
//   (no model field: LM Studio serves whatever model is loaded, which
//   is why the pins are checked up front instead)
//   The single user message carries the instructions, the email body,
//   and any thread context collected earlier in the same thread.
//   Retried with the standard policy on transport errors, non-200
//   statuses, and empty choices.
//   Returns: AnalysisResult { fields, err } - a failed analysis comes
//   back as a result with err set and every field blank, never as a Go
//   error, so one bad message cannot abort the run.
//
// Required fields (always present in the result, blank when unknown):
//   price_usd, price_usd_casino, important_info, comments
//
// Response recovery:
//   The model's reply is not trusted to be pure JSON. Take the
//   substring from the first '{' to the last '}' and unmarshal that.
//   Missing keys become blank fields. No JSON object at all fails the
//   analysis.
//
// Price sanitation:
//   price_usd and price_usd_casino keep digits only ("1,500 USD" ->
//   "1500"). Everything else is passed through trimmed.
//
// Deterministic price override:
//   Bodies in the stacked label format ("Price USD:\n1500") are read
//   with a regex before the model runs; a regex hit overrides the
//   model's value for that field. The model still runs for the free
//   text fields.
//
// Error handling:
//   - server unreachable: retried, then failed result (lm_studio error)
//   - non-200 status or empty choices: same
//   - reply with no JSON object: failed result, no retry (the reply
//     arrived; asking again costs a full generation)

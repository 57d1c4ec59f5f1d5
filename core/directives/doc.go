// Package directives implements the structured-interaction protocol embedded
// in assistant text.
//
// Assistant messages may carry directive tags inside otherwise free prose.
// Two grammars exist on the wire:
//
//   - Bracket form: "[YES_NO: <question>]", closed by the nearest following
//     "]". The question cannot itself contain "]".
//   - Braced-payload form: "[INPUT: <object>]" and "[APPROVAL: <object>]",
//     where <object> is a JSON object located by balanced-brace counting, so
//     nested arrays and objects are covered. "[INPUT:]" payloads are
//     discriminated by their "type" field (slider, text, choice).
//
// A legacy alias "[SLIDER: <min>,<max>,<step>: <question>]" (or
// "[SLIDER: <question>]") yields a slider with the default 0-100 bounds; the
// numeric triple is recognized but not honored.
//
// Scan splits a message into ordered segments: plain text runs, directive
// references, and inert parse-error fragments for payloads that extracted but
// failed to decode. Unknown "[INPUT:]" subtypes are dropped and logged.
// Encode turns a resolved directive value into its user-visible echo, its
// outbound text, and, for the structured kinds, an input-resolution payload.
package directives

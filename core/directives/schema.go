package directives

import "github.com/invopop/jsonschema"

// PayloadSchemas returns the JSON Schemas of the braced payload forms, keyed
// by introducer name. Server implementers generate against these instead of
// reverse-engineering the scanner.
func PayloadSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return map[string]*jsonschema.Schema{
		"input":    reflector.Reflect(inputPayload{}),
		"approval": reflector.Reflect(approvalPayload{}),
		"response": reflector.Reflect(ResponsePayload{}),
	}
}

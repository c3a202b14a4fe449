package scenario

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the scenario metadata file: an object mapping scenario
// names to ordered message lists.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	messageSchema := reflector.Reflect(&Message{})
	messageSchema.Version = ""
	messageSchema.AdditionalProperties = nil

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Scenario metadata",
		Description: "Scenario name to ordered list of messages",
		Type:        "object",
		AdditionalProperties: &jsonschema.Schema{
			Type:  "array",
			Items: messageSchema,
		},
	}
}

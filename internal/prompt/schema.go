package prompt

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"feststay.app/concierge/internal/model"
)

// listingSchemaJSON is the JSON schema of the structured listing block,
// generated from the same type the extraction pipeline parses into so the
// prompt and the parser cannot drift apart.
var listingSchemaJSON = generateListingSchema()

func generateListingSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&model.Listing{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		// Reflection of a static type cannot fail at runtime; a broken
		// schema would be caught by the prompt tests.
		panic(err)
	}
	return string(out)
}

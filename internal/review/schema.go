package review

import (
	"github.com/invopop/jsonschema"

	"caretaker.app/relay/internal/model"
)

// Schema describes the review object agents must embed in their events.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(&model.ValidatedReview{})
}

// internal/ledger/events/schema.go
package events

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// eventSchema guards the published payload shape. Downstream consumers
// key off type and id, so both are required.
const eventSchema = `{
	"type": "object",
	"required": ["id", "type", "timestamp"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"type": {
			"type": "string",
			"enum": [
				"PlanCreated", "Subscribed", "Paused", "Canceled",
				"ProfileCreated", "ProfileUpdated", "ContentAdded"
			]
		},
		"planId": {"type": "string"},
		"creator": {"type": "string"},
		"subscriber": {"type": "string"},
		"contentCid": {"type": "string"},
		"timestamp": {"type": "string"}
	},
	"additionalProperties": false
}`

var schemaLoader = gojsonschema.NewStringLoader(eventSchema)

func validatePayload(payload []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid event payload: %s", strings.Join(msgs, "; "))
	}
	return nil
}

package shop

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed envelope.schema.json
var envelopeSchemaJSON []byte

var ErrBadEnvelope = errors.New("invalid event envelope")

// Envelope is the wire form of an Event accepted by the HTTP and queue
// ingress.
type Envelope struct {
	Type       Kind            `json:"type"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func envelopeSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(envelopeSchemaJSON))
	})
	return schema, schemaErr
}

// ParseEnvelope validates raw against the envelope schema and decodes it.
// Validation failures wrap ErrBadEnvelope and list every problem.
func ParseEnvelope(raw []byte) (Event, error) {
	sch, err := envelopeSchema()
	if err != nil {
		return Event{}, fmt.Errorf("envelope schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if !res.Valid() {
		errs := make([]string, len(res.Errors()))
		for i, desc := range res.Errors() {
			errs[i] = desc.String()
		}
		return Event{}, fmt.Errorf("%w: %s", ErrBadEnvelope, strings.Join(errs, "; "))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	ev := Event{Kind: env.Type}
	if env.OccurredAt != nil {
		ev.At = *env.OccurredAt
	}

	var target any
	switch env.Type {
	case KindOrderPlaced:
		ev.Order = &Order{}
		target = ev.Order
	case KindAdminLogin:
		ev.Employee = &Employee{}
		target = ev.Employee
	case KindNewCustomer:
		ev.Customer = &Customer{}
		target = ev.Customer
	case KindTest:
		return ev, nil
	default:
		return Event{}, fmt.Errorf("%w: unknown type %q", ErrBadEnvelope, env.Type)
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		return Event{}, fmt.Errorf("%w: payload: %v", ErrBadEnvelope, err)
	}
	return ev, nil
}

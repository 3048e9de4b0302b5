package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/gate"
)

type EventBody struct {
	EventType  string         `json:"event_type" minLength:"1" maxLength:"100" doc:"Event type, e.g. stock.adjusted"`
	EntityType string         `json:"entity_type" minLength:"1" maxLength:"100" doc:"Entity type, e.g. stock_item"`
	EntityID   int64          `json:"entity_id" minimum:"1" doc:"Entity ID"`
	ProducerID *int64         `json:"producer_id,omitempty" doc:"Producer the event relates to"`
	Payload    map[string]any `json:"payload,omitempty" doc:"Event payload"`
}

type EmitEventInput struct {
	Body EventBody
}

type EmitEventOutput struct {
	Body struct {
		ID int64 `json:"id"`
	}
}

type EmitBatchInput struct {
	Body struct {
		Events []EventBody `json:"events" minItems:"1" maxItems:"100" doc:"Events to append atomically"`
	}
}

type EmitBatchOutput struct {
	Body struct {
		IDs []int64 `json:"ids"`
	}
}

type RecentEventsInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum number of events"`
}

type RecentEventsOutput struct {
	Body []*domain.Event
}

func eventFromBody(b EventBody, userID int64) *domain.Event {
	return &domain.Event{
		EventType:  b.EventType,
		EntityType: b.EntityType,
		EntityID:   b.EntityID,
		ProducerID: b.ProducerID,
		Payload:    b.Payload,
		UserID:     &userID,
	}
}

func RegisterEventRoutes(api huma.API, events EventService, guard *Guard) {
	huma.Register(api, huma.Operation{
		OperationID:   "emit-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Append a business event",
		Tags:          []string{"Events"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *EmitEventInput) (*EmitEventOutput, error) {
		userID, _, err := guard.Allow(ctx, gate.ResourceEvent, gate.ActionCreate)
		if err != nil {
			return nil, err
		}

		id, err := events.Emit(ctx, eventFromBody(input.Body, userID))
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest("missing required event fields")
			}
			return nil, huma.Error500InternalServerError("failed to append event", err)
		}

		out := &EmitEventOutput{}
		out.Body.ID = id
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "emit-event-batch",
		Method:        http.MethodPost,
		Path:          "/events/batch",
		Summary:       "Append a batch of events atomically",
		Tags:          []string{"Events"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *EmitBatchInput) (*EmitBatchOutput, error) {
		userID, _, err := guard.Allow(ctx, gate.ResourceEvent, gate.ActionCreate)
		if err != nil {
			return nil, err
		}

		batch := make([]*domain.Event, len(input.Body.Events))
		for i, b := range input.Body.Events {
			batch[i] = eventFromBody(b, userID)
		}

		ids, err := events.EmitBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest("batch contains an invalid event")
			}
			return nil, huma.Error500InternalServerError("failed to append event batch", err)
		}

		out := &EmitBatchOutput{}
		out.Body.IDs = ids
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recent-events",
		Method:      http.MethodGet,
		Path:        "/events/recent",
		Summary:     "List recent events, newest first",
		Tags:        []string{"Events"},
	}, func(ctx context.Context, input *RecentEventsInput) (*RecentEventsOutput, error) {
		_, _, err := guard.Allow(ctx, gate.ResourceEvent, gate.ActionRead)
		if err != nil {
			return nil, err
		}

		recent, err := events.RecentEvents(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list events", err)
		}

		return &RecentEventsOutput{Body: recent}, nil
	})
}

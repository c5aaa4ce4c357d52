package services

import (
	"encoding/json"

	"inkeep-github-trigger/models"
)

// BuildTriggerPayload assembles the outbound payload from the resolved event
// and the fetched pull request context. Pure construction: no network, no
// mutable state. The payload is schema-checked before it is returned; a
// violation here is a defect in this program, not in any input.
func BuildTriggerPayload(eventContext *models.EventContext, prContext *models.PRContext) (*models.TriggerPayload, error) {
	payload := &models.TriggerPayload{
		Event:          eventContext.Event,
		Repository:     eventContext.Repository,
		PullRequest:    prContext.PullRequest,
		Sender:         eventContext.Sender,
		ChangedFiles:   prContext.ChangedFiles,
		Comments:       prContext.Comments,
		TriggerComment: prContext.TriggerComment,
		Diff:           prContext.Diff,
	}

	// Schema arrays must be present even when empty
	if payload.ChangedFiles == nil {
		payload.ChangedFiles = []models.ChangedFile{}
	}
	if payload.Comments == nil {
		payload.Comments = []models.Comment{}
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeInvariantViolation, err, "payload does not serialize")
	}
	if err := models.ValidatePayloadJSON(serialized); err != nil {
		return nil, models.WrapTriggerError(models.ErrCodeInvariantViolation, err, "assembled payload fails its own schema")
	}

	return payload, nil
}

package scheduler

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const TaskSignatureExport = "signatures.export"

// ErrDuplicateExport is returned when the signature already has a pending export.
var ErrDuplicateExport = errors.New("signature export already queued")

type SignatureExportPayload struct {
	SignatureID string `json:"signatureId"`
	RequestedBy string `json:"requestedBy"`
}

func NewSignatureExportTask(payload SignatureExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSignatureExport, data), nil
}

func ParseSignatureExportPayload(task *asynq.Task) (SignatureExportPayload, error) {
	var payload SignatureExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SignatureExportPayload{}, err
	}
	return payload, nil
}

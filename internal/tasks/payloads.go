package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeExport = "resume:export"
)

// ResumeExportPayload 描述导出 PDF 所需的最小信息。
type ResumeExportPayload struct {
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeExportTask 构造一个简历 PDF 导出任务。
func NewResumeExportTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeExportPayload{
		ResumeID:      id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeExport, payload, asynq.MaxRetry(3)), nil
}

// ParseResumeExportPayload 解析任务负载。
func ParseResumeExportPayload(t *asynq.Task) (ResumeExportPayload, error) {
	var p ResumeExportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return ResumeExportPayload{}, err
	}
	return p, nil
}

package reactions

import (
	"context"
	"sync"
	"time"

	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/monitoring"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Publisher ships a notification payload to a topic. Delivery is best-effort;
// a failed publish never affects the transaction that triggered it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// LogPublisher writes notifications to the structured log. It stands in until
// a message broker is attached; downstream pagers tail the log stream.
type LogPublisher struct {
	logger *logger.Logger
}

// NewLogPublisher creates a log-backed publisher.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log}
}

// Publish writes the payload as a structured log entry.
func (p *LogPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.logger.WithFields(map[string]interface{}{
		"notification": true,
		"topic":        topic,
		"payload":      payload,
	}).Info("Notification published")
	return nil
}

// HighRiskAlert is the payload sent when an assessment crosses the high-risk
// threshold.
type HighRiskAlert struct {
	PatientID       string `json:"patient_id"`
	AssessmentType  string `json:"assessment_type"`
	Score           int    `json:"score"`
	ProviderContact string `json:"provider_contact"`
}

// Notifier publishes clinical notifications asynchronously.
type Notifier struct {
	publisher Publisher
	topic     string
	logger    *logger.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewNotifier creates a notifier publishing high-risk alerts to topic.
func NewNotifier(publisher Publisher, topic string, log *logger.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		topic:     topic,
		logger:    log,
		timeout:   10 * time.Second,
	}
}

// IsHighRisk reports whether the assessment must trigger an alert: a PHQ-9 or
// GAD-7 score at or above the threshold.
func IsHighRisk(a *types.Assessment) bool {
	if a.AssessmentType != types.AssessmentPHQ9 && a.AssessmentType != types.AssessmentGAD7 {
		return false
	}
	return a.Score >= types.HighRiskScoreThreshold
}

// EmitHighRisk publishes an alert for the assessment in the background. It is
// fire-and-forget: the caller's transaction has already committed and a
// delivery failure only logs.
func (n *Notifier) EmitHighRisk(a *types.Assessment, providerContact string) {
	alert := HighRiskAlert{
		PatientID:       a.PatientID,
		AssessmentType:  a.AssessmentType,
		Score:           a.Score,
		ProviderContact: providerContact,
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.publisher.Publish(ctx, n.topic, alert); err != nil {
			n.logger.WithError(err).WithFields(map[string]interface{}{
				"topic":      n.topic,
				"patient_id": a.PatientID,
			}).Error("Failed to publish high-risk alert")
			return
		}
		monitoring.RecordNotification(n.topic)
	}()
}

// Wait blocks until all in-flight publishes finish. Used on shutdown and in
// tests.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

package notify

import (
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSNotifier raises an operator alert over Twilio when a download job burns
// through its whole retry budget. It implements footage.FailureNotifier.
type SMSNotifier struct {
	client     *twilio.RestClient
	fromNumber string
	toNumber   string
	logger     *slog.Logger
}

func NewSMSNotifier(accountSid, authToken, fromNumber, toNumber string, logger *slog.Logger) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &SMSNotifier{
		client:     client,
		fromNumber: fromNumber,
		toNumber:   toNumber,
		logger:     logger,
	}
}

func (n *SMSNotifier) NotifyJobFailure(jobID, searchTerm, reason string) {
	body := fmt.Sprintf("Reel footage download permanently failed. job=%s term=%q reason=%s", jobID, searchTerm, reason)

	params := &twilioApi.CreateMessageParams{
		To:   &n.toNumber,
		From: &n.fromNumber,
		Body: &body,
	}

	message, err := n.client.Api.CreateMessage(params)
	if err != nil {
		n.logger.Error("Failed to send failure alert SMS",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID),
			slog.String("to", n.toNumber))
		return
	}

	n.logger.Info("Failure alert SMS sent",
		slog.String("job_id", jobID),
		slog.String("message_sid", *message.Sid))
}

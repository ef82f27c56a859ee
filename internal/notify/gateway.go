// internal/notify/gateway.go
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"agency-crm/internal/common/config"
)

// SNSAPI is the slice of SNS the gateway uses; tests mock it.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SESAPI is the slice of SES the gateway uses; tests mock it.
type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Gateway delivers outbound applicant messages over SMS and email.
type Gateway struct {
	sns SNSAPI
	ses SESAPI
	cfg config.IntegrationConfig
}

func NewGateway(snsClient SNSAPI, sesClient SESAPI, cfg config.IntegrationConfig) *Gateway {
	return &Gateway{sns: snsClient, ses: sesClient, cfg: cfg}
}

func (g *Gateway) SendSMS(ctx context.Context, phone, message string) error {
	if !g.cfg.AWS.SNS.Enabled || g.sns == nil {
		return fmt.Errorf("sms channel disabled")
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}
	if sender := g.cfg.AWS.SNS.DefaultSMSSenderID; sender != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(sender),
			},
		}
	}

	if _, err := g.sns.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func (g *Gateway) SendEmail(ctx context.Context, to, subject, body string) error {
	if !g.cfg.AWS.SES.Enabled || g.ses == nil {
		return fmt.Errorf("email channel disabled")
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(g.cfg.AWS.SES.FromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	}

	if _, err := g.ses.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

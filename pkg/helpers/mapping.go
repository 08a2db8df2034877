package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/eventhub/pkg/mailer"
	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
)

// SubjectFallback is used when a job carries no subject and its template renders none.
func SubjectFallback(template string, data map[string]any) string {
	switch strings.ToLower(template) {
	case mailtpl.RegistrationConfirmation:
		if name := strings.TrimSpace(fmt.Sprintf("%v", data["EventName"])); name != "" && name != "<nil>" {
			return "Your ticket for " + name
		}
		return "Your event ticket"
	case mailtpl.Welcome:
		return "Welcome"
	default:
		return "Notification"
	}
}

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// NormalizeTemplate lowercases the template name and maps aliases used by
// older producers ("registration", "ticket") onto registration_confirmation.
func NormalizeTemplate(job *mailer.EmailJob) {
	name := strings.ToLower(strings.TrimSpace(job.Template))
	switch name {
	case "registration", "ticket", "event_ticket":
		name = mailtpl.RegistrationConfirmation
	}
	job.Template = name
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if _, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", job.Data["Type"]) == "" {
		job.Data["Type"] = name
	}
}

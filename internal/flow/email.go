// ABOUTME: The email-compose flow: recipient, subject, body, then confirmation.
// ABOUTME: Confirmed drafts dispatch email.send with the collected fields.

package flow

// EmailCompose returns the built-in email composition flow.
func EmailCompose() *Flow {
	return &Flow{
		Name:    "email-compose",
		Command: "email",
		Action:  "email.send",
		Summary: "compose and send an email",
		Steps: []Step{
			{
				Name:     "recipient",
				Label:    "To",
				FieldKey: "to",
				Prompt:   "Who should receive this email? Enter the recipient's address.",
			},
			{
				Name:     "subject",
				Label:    "Subject",
				FieldKey: "subject",
				Prompt:   "What's the subject line?",
			},
			{
				Name:     "body",
				Label:    "Body",
				FieldKey: "body",
				Prompt:   "What should the email say?",
			},
		},
	}
}

// Package notify implements the notification collaborator: mail message
// shaping, a Redis-backed fire-and-forget queue, and the worker that
// drains it. Delivery is best-effort — callers never observe a failure.
package notify

import "fmt"

// StageChangeMail builds the mail sent to a candidate when their
// application enters a stage (including the initial Applied event).
func StageChangeMail(jobTitle, stage string) (subject, body string) {
	subject = fmt.Sprintf("Your application for %s: %s", jobTitle, stage)
	body = fmt.Sprintf(
		"Hello,\n\nYour application for the position %q has moved to the %q stage.\n\n— The HireFlow team\n",
		jobTitle, stage,
	)
	return subject, body
}

// NewApplicationMail builds the notice sent to each recruiter of the
// hiring company when a candidate applies.
func NewApplicationMail(jobTitle, candidateEmail string) (subject, body string) {
	subject = fmt.Sprintf("New application for %s", jobTitle)
	body = fmt.Sprintf(
		"Hello,\n\n%s has applied for the position %q. Review the application in your pipeline.\n\n— The HireFlow team\n",
		candidateEmail, jobTitle,
	)
	return subject, body
}

// FollowUpMail builds the reminder sent to recruiters when an
// application has been sitting in a stage too long.
func FollowUpMail(jobTitle, stage string, daysIdle int) (subject, body string) {
	subject = fmt.Sprintf("Follow-up needed: application for %s", jobTitle)
	body = fmt.Sprintf(
		"Hello,\n\nAn application for %q has been in the %q stage for %d days without movement. Consider following up.\n\n— The HireFlow team\n",
		jobTitle, stage, daysIdle,
	)
	return subject, body
}

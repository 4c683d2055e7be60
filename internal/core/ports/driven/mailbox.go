package driven

import (
	"context"
	"time"
)

// MailAttachment is one attachment of a mailbox message.
type MailAttachment struct {
	Filename string
	Data     []byte
}

// MailMessage is one fetched mailbox message with its decoded bodies
// and attachments.
type MailMessage struct {
	// UID is the folder-scoped stable message identifier.
	UID string

	From    string
	To      string
	Subject string
	Date    time.Time

	// HTMLBody and TextBody are the alternative body parts. The HTML
	// version is preferred when present.
	HTMLBody string
	TextBody string

	Attachments []MailAttachment
}

// MailboxClient drives the remote mailbox's folder-scoped fetch API.
type MailboxClient interface {
	// FetchSince returns all messages in the folder received on or
	// after since. A zero since means all history.
	FetchSince(ctx context.Context, folder string, since time.Time) ([]MailMessage, error)

	// Close logs out and releases the connection.
	Close() error
}

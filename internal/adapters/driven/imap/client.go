// Package imap implements the mailbox client over IMAP4rev1/rev2. Each
// fetch selects a folder, searches by receive date, and downloads full
// messages for MIME decoding.
package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/arkiv-labs/arkiv/internal/core/domain"
	"github.com/arkiv-labs/arkiv/internal/core/ports/driven"
	"github.com/arkiv-labs/arkiv/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.MailboxClient = (*Client)(nil)

// Config holds IMAP connection settings.
type Config struct {
	// Host is the IMAP server hostname.
	Host string

	// Port is the IMAPS port. Zero means 993.
	Port int

	Username string
	Password string
}

// Client is an IMAP-backed mailbox client. Not safe for concurrent
// use; IMAP sessions are stateful (one selected folder at a time).
type Client struct {
	conn *imapclient.Client
}

// New dials the server over TLS and logs in.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: imap host, username, and password are required", domain.ErrInvalidConfig)
	}
	port := cfg.Port
	if port == 0 {
		port = 993
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, port)
	conn, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := conn.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	return &Client{conn: conn}, nil
}

// FetchSince returns all messages in the folder received on or after
// since. A zero since means all history. SINCE has day granularity on
// IMAP servers, so callers may see messages from earlier in the
// watermark day again; the sync engine's duplicate guard absorbs that.
func (c *Client) FetchSince(_ context.Context, folder string, since time.Time) ([]driven.MailMessage, error) {
	if _, err := c.conn.Select(folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}

	criteria := &imap.SearchCriteria{}
	if !since.IsZero() {
		criteria.Since = since
	}
	searchData, err := c.conn.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", folder, err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	logger.Debug("folder %s: %d messages match since=%v", folder, len(uids), since)

	bodySection := &imap.FetchItemBodySection{}
	fetched, err := c.conn.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", folder, err)
	}

	messages := make([]driven.MailMessage, 0, len(fetched))
	for _, buf := range fetched {
		msg, err := decodeMessage(buf, bodySection)
		if err != nil {
			// A malformed message becomes an envelope-only entry so
			// the caller still sees it rather than silently losing it.
			logger.Warn("decode message uid=%v in %s: %v", buf.UID, folder, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Close logs out and releases the connection.
func (c *Client) Close() error {
	if err := c.conn.Logout().Wait(); err != nil {
		return c.conn.Close()
	}
	return nil
}

// decodeMessage converts one fetched message into the port's shape.
// Envelope fields are always populated; body decoding is best-effort.
func decodeMessage(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) (driven.MailMessage, error) {
	msg := driven.MailMessage{
		UID: strconv.FormatUint(uint64(buf.UID), 10),
	}
	if env := buf.Envelope; env != nil {
		msg.Subject = env.Subject
		msg.Date = env.Date
		msg.From = formatAddresses(env.From)
		msg.To = formatAddresses(env.To)
	}

	raw := buf.FindBodySection(section)
	if len(raw) == 0 {
		return msg, fmt.Errorf("no body returned")
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return msg, fmt.Errorf("parse mime: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return msg, fmt.Errorf("read part: %w", err)
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			content, err := io.ReadAll(part.Body)
			if err != nil {
				return msg, fmt.Errorf("read body part: %w", err)
			}
			switch contentType {
			case "text/html":
				msg.HTMLBody = string(content)
			case "text/plain":
				msg.TextBody = string(content)
			}
		case *mail.AttachmentHeader:
			filename, err := header.Filename()
			if err != nil || filename == "" {
				continue
			}
			content, err := io.ReadAll(part.Body)
			if err != nil {
				return msg, fmt.Errorf("read attachment %s: %w", filename, err)
			}
			msg.Attachments = append(msg.Attachments, driven.MailAttachment{
				Filename: filename,
				Data:     content,
			})
		}
	}
	return msg, nil
}

// formatAddresses renders envelope addresses as a comma-separated
// list.
func formatAddresses(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		parts = append(parts, addr.Addr())
	}
	return strings.Join(parts, ", ")
}

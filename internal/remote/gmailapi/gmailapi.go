// Package gmailapi implements remote.Client on top of the Gmail API.
//
// It translates between quantamail folders and Gmail labels, downloads
// folder snapshots, and applies queued operations (read/star/move/delete/
// draft-create) through Users.Messages and Users.Drafts calls.
package gmailapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/quantamail/quantamail/internal/remote"
	"github.com/quantamail/quantamail/internal/types"
)

// Headers carrying the encryption envelope on quantamail messages.
const (
	headerFlow      = "X-Quantamail-Flow"
	headerAlgorithm = "X-Quantamail-Algorithm"
	headerLevel     = "X-Quantamail-Level"
	headerQuantum   = "X-Quantamail-Quantum"
)

// folderQueries maps local folders to Gmail search scopes.
var folderQueries = map[string]string{
	types.FolderInbox:  "in:inbox",
	types.FolderSent:   "in:sent",
	types.FolderDrafts: "in:drafts",
	types.FolderTrash:  "in:trash",
}

// folderLabels maps local folders to the Gmail label applied on move.
var folderLabels = map[string]string{
	types.FolderInbox: "INBOX",
	types.FolderTrash: "TRASH",
}

// Client is a Gmail-backed remote mail service.
type Client struct {
	svc     *gm.Service
	account string
}

// New returns a Client for the given authenticated service and account.
func New(svc *gm.Service, account string) *Client {
	return &Client{svc: svc, account: account}
}

var _ remote.Client = (*Client)(nil)

// FetchFolder downloads a snapshot of the folder, newest first. Any
// individual download failure fails the whole snapshot so the caller never
// merges a partial one.
func (c *Client) FetchFolder(ctx context.Context, folder string, max int64) ([]*types.Message, error) {
	query, ok := folderQueries[folder]
	if !ok {
		return nil, fmt.Errorf("no remote mapping for folder %q", folder)
	}

	list, err := c.svc.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}

	msgs := make([]*types.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := c.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", ref.Id, err)
		}
		msgs = append(msgs, decodeRemoteMessage(full, folder))
	}
	return msgs, nil
}

// decodeRemoteMessage maps a Gmail message onto the local representation.
func decodeRemoteMessage(msg *gm.Message, folder string) *types.Message {
	headers := headerMap(msg.Payload.Headers)
	fromName, fromAddr := splitAddress(headers["From"])

	m := &types.Message{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		RemoteID:   headers["Message-ID"],
		From:       fromAddr,
		FromName:   fromName,
		To:         headers["To"],
		Subject:    defaultStr(headers["Subject"], "(no subject)"),
		Snippet:    msg.Snippet,
		Folder:     folder,
		Date:       time.UnixMilli(msg.InternalDate).UTC().Format(time.RFC3339),
		SyncStatus: types.SyncStatusSynced,
	}

	m.IsRead = !hasLabel(msg.LabelIds, "UNREAD")
	m.IsStarred = hasLabel(msg.LabelIds, "STARRED")

	body := extractBody(msg.Payload)
	if headers[headerAlgorithm] != "" {
		// Encrypted envelope: the transported body is ciphertext.
		m.IsEncrypted = true
		m.EncryptedBody = []byte(body)
		m.Algorithm = headers[headerAlgorithm]
		m.FlowID = headers[headerFlow]
		fmt.Sscanf(headers[headerLevel], "%d", &m.SecurityLevel)
		m.QuantumEnhanced = strings.EqualFold(headers[headerQuantum], "true")
	} else {
		m.Body = body
	}

	if atts := extractAttachments(msg.Payload); len(atts) > 0 {
		if data, err := json.Marshal(atts); err == nil {
			m.Attachments = string(data)
		}
	}
	return m
}

// Deliver applies one queued operation remotely. Gmail label and trash
// operations are idempotent, which keeps at-least-once delivery safe.
func (c *Client) Deliver(ctx context.Context, entry *types.QueueEntry) error {
	switch entry.Operation {
	case types.OpMarkRead:
		var p struct {
			Read bool `json:"read"`
		}
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return fmt.Errorf("parse read payload: %w", err)
		}
		mod := &gm.ModifyMessageRequest{AddLabelIds: []string{"UNREAD"}}
		if p.Read {
			mod = &gm.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
		}
		return c.modify(ctx, entry.MessageID, mod)

	case types.OpMarkStarred:
		var p struct {
			Starred bool `json:"starred"`
		}
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return fmt.Errorf("parse star payload: %w", err)
		}
		mod := &gm.ModifyMessageRequest{RemoveLabelIds: []string{"STARRED"}}
		if p.Starred {
			mod = &gm.ModifyMessageRequest{AddLabelIds: []string{"STARRED"}}
		}
		return c.modify(ctx, entry.MessageID, mod)

	case types.OpUpdate:
		var p struct {
			Folder string `json:"folder"`
		}
		if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
			return fmt.Errorf("parse move payload: %w", err)
		}
		return c.move(ctx, entry.MessageID, p.Folder)

	case types.OpDelete:
		_, err := c.svc.Users.Messages.Trash("me", entry.MessageID).Context(ctx).Do()
		if err != nil && isNotFound(err) {
			return nil
		}
		return err

	case types.OpCreate:
		return c.createDraft(ctx, entry)

	default:
		return fmt.Errorf("operation %q is not deliverable remotely", entry.Operation)
	}
}

func (c *Client) modify(ctx context.Context, id string, mod *gm.ModifyMessageRequest) error {
	_, err := c.svc.Users.Messages.Modify("me", id, mod).Context(ctx).Do()
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

func (c *Client) move(ctx context.Context, id, folder string) error {
	label, ok := folderLabels[folder]
	if !ok {
		return fmt.Errorf("no remote label for folder %q", folder)
	}
	remove := make([]string, 0, len(folderLabels))
	for f, l := range folderLabels {
		if f != folder {
			remove = append(remove, l)
		}
	}
	return c.modify(ctx, id, &gm.ModifyMessageRequest{
		AddLabelIds:    []string{label},
		RemoveLabelIds: remove,
	})
}

// draftPayload mirrors the JSON enqueued for draft creation.
type draftPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	BodyHTML string `json:"body_html"`
}

func (c *Client) createDraft(ctx context.Context, entry *types.QueueEntry) error {
	var p draftPayload
	if err := json.Unmarshal([]byte(entry.Payload), &p); err != nil {
		return fmt.Errorf("parse draft payload: %w", err)
	}

	var raw strings.Builder
	fmt.Fprintf(&raw, "From: %s\r\n", c.account)
	fmt.Fprintf(&raw, "To: %s\r\n", p.To)
	fmt.Fprintf(&raw, "Subject: %s\r\n", p.Subject)
	raw.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	raw.WriteString(p.Body)

	_, err := c.svc.Users.Drafts.Create("me", &gm.Draft{
		Message: &gm.Message{
			Raw: base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(raw.String())),
		},
	}).Context(ctx).Do()
	return err
}

// extractBody gets the plain text body from a message payload, recursing
// through multipart messages and preferring text/plain over text/html.
func extractBody(payload *gm.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := decodeBase64URL(payload.Body.Data); err == nil {
			return decoded
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
				return decoded
			}
		}
		if len(part.Parts) > 0 {
			if body := extractBody(part); body != "" {
				return body
			}
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
				return decoded
			}
		}
	}
	return ""
}

// attachmentInfo is the serialized attachment metadata stored per message.
type attachmentInfo struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id,omitempty"`
}

func extractAttachments(payload *gm.MessagePart) []attachmentInfo {
	var attachments []attachmentInfo
	var scan func(parts []*gm.MessagePart)
	scan = func(parts []*gm.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" {
				att := attachmentInfo{Filename: part.Filename, MimeType: part.MimeType}
				if part.Body != nil {
					att.Size = part.Body.Size
					att.AttachmentID = part.Body.AttachmentId
				}
				attachments = append(attachments, att)
			}
			if len(part.Parts) > 0 {
				scan(part.Parts)
			}
		}
	}
	if len(payload.Parts) > 0 {
		scan(payload.Parts)
	}
	return attachments
}

func headerMap(headers []*gm.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

// decodeBase64URL decodes Gmail's base64url-encoded content.
func decodeBase64URL(data string) (string, error) {
	data = strings.ReplaceAll(data, "-", "+")
	data = strings.ReplaceAll(data, "_", "/")
	switch len(data) % 4 {
	case 2:
		data += "=="
	case 3:
		data += "="
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// splitAddress splits `Name <addr>` into its parts. A bare address comes
// back with an empty name.
func splitAddress(from string) (name, addr string) {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		name = strings.Trim(strings.TrimSpace(from[:i]), `"`)
		addr = strings.TrimRight(strings.TrimSpace(from[i+1:]), ">")
		return name, addr
	}
	return "", strings.TrimSpace(from)
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

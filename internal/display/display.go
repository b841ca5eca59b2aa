// Package display provides terminal formatting for quantamail output.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/quantamail/quantamail/internal/types"
)

var (
	// Styles
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))

	lockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7c3aed"))
	unlockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	starStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
)

// EncryptionDot marks a message's encryption state: a purple lock for
// ciphertext still waiting on decryption, green once the plaintext is local.
func EncryptionDot(m *types.Message) string {
	switch {
	case m.IsEncrypted && !m.IsDecrypted:
		return lockedStyle.Render("●")
	case m.IsEncrypted && m.IsDecrypted:
		return unlockedStyle.Render("○")
	default:
		return Dim.Render("·")
	}
}

// SyncBadge returns a short styled label for a message's sync state.
func SyncBadge(status string) string {
	switch status {
	case types.SyncStatusPendingUpload, types.SyncStatusPendingDownload:
		return pendingStyle.Render("~")
	case types.SyncStatusConflict:
		return conflictStyle.Render("!")
	default:
		return " "
	}
}

// StarMark returns a star for starred messages, a space otherwise.
func StarMark(starred bool) string {
	if starred {
		return starStyle.Render("★")
	}
	return " "
}

// FolderLabel returns a human folder name, capitalized.
func FolderLabel(folder string) string {
	if folder == "" {
		return "Inbox"
	}
	return strings.ToUpper(folder[:1]) + folder[1:]
}

// SecurityLabel describes a message's encryption envelope, e.g.
// "kyber1024 L5 quantum". Unencrypted messages get an empty label.
func SecurityLabel(m *types.Message) string {
	if !m.IsEncrypted {
		return ""
	}
	parts := []string{}
	if m.Algorithm != "" {
		parts = append(parts, m.Algorithm)
	}
	if m.SecurityLevel > 0 {
		parts = append(parts, fmt.Sprintf("L%d", m.SecurityLevel))
	}
	if m.QuantumEnhanced {
		parts = append(parts, "quantum")
	}
	if len(parts) == 0 {
		return lockedStyle.Render("encrypted")
	}
	return lockedStyle.Render(strings.Join(parts, " "))
}

// AccountLabel returns a short label for an account.
// Derives the label from the domain (e.g., "user@example.com" -> "example").
func AccountLabel(account string) string {
	if idx := strings.Index(account, "@"); idx > 0 {
		domain := account[idx+1:]
		if dotIdx := strings.Index(domain, "."); dotIdx > 0 {
			return domain[:dotIdx]
		}
		return domain
	}
	return account
}

// TimeAgo formats an ISO date string as a relative time.
func TimeAgo(isoDate string) string {
	if isoDate == "" {
		return ""
	}

	var t time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02 15:04:05", time.RFC3339Nano} {
		t, err = time.Parse(layout, isoDate)
		if err == nil {
			break
		}
	}
	if err != nil {
		return isoDate[:min(10, len(isoDate))]
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens a string to maxLen, adding ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(Success.Render("✓") + " " + msg)
}

// ErrorMsg prints a red X + message to stderr.
func ErrorMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrStyle.Render("✗")+" "+msg)
}

// Header prints a section header.
func Header(title string) {
	fmt.Println(Bold.Render(title))
}

// SubHeader prints a dim subsection label.
func SubHeader(title string) {
	fmt.Println(Muted.Render(title))
}

// MessageLine prints one message as a list row: markers, sender, subject,
// relative date. Unread rows render the subject bold.
func MessageLine(m *types.Message) {
	from := m.FromName
	if from == "" {
		from = m.From
	}
	subject := Truncate(m.Subject, 60)
	if !m.IsRead {
		subject = Bold.Render(subject)
	}
	fmt.Printf("%s%s%s %-24s %s  %s\n",
		EncryptionDot(m),
		StarMark(m.IsStarred),
		SyncBadge(m.SyncStatus),
		Truncate(from, 24),
		subject,
		Dim.Render(TimeAgo(m.Date)),
	)
}

// MessageDetail prints the full view of a single message.
func MessageDetail(m *types.Message) {
	Header(m.Subject)
	fmt.Printf("%s %s\n", Muted.Render("From:"), formatSender(m))
	if m.To != "" {
		fmt.Printf("%s %s\n", Muted.Render("To:"), m.To)
	}
	fmt.Printf("%s %s (%s)\n", Muted.Render("Date:"), m.Date, TimeAgo(m.Date))
	fmt.Printf("%s %s\n", Muted.Render("Folder:"), FolderLabel(m.Folder))
	if label := SecurityLabel(m); label != "" {
		fmt.Printf("%s %s\n", Muted.Render("Security:"), label)
	}
	fmt.Println()

	switch {
	case m.IsEncrypted && !m.IsDecrypted:
		fmt.Println(lockedStyle.Render("Encrypted message. Run `qm decrypt` to unlock it."))
	case m.DecryptedBody != "":
		fmt.Println(m.DecryptedBody)
	default:
		fmt.Println(m.Body)
	}
}

func formatSender(m *types.Message) string {
	if m.FromName != "" && m.From != "" {
		return fmt.Sprintf("%s <%s>", Bold.Render(m.FromName), m.From)
	}
	if m.From != "" {
		return m.From
	}
	return m.FromName
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

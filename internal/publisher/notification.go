// Package publisher defines the run-completion notification sent to
// downstream consumers.
package publisher

import "github.com/JakeFAU/linkcheck/internal/crawler"

// Notification summarises a finished run.
type Notification struct {
	RunID        string `json:"run_id"`
	URLs         int    `json:"urls"`
	Entries      int    `json:"entries"`
	Failures     int    `json:"failures"`
	ReportSHA256 string `json:"report_sha256"`
	ArchiveURI   string `json:"archive_uri,omitempty"`
}

// NewNotification builds the payload for report. digest is the hex SHA-256
// of the rendered report; archiveURI may be empty.
func NewNotification(report crawler.Report, digest, archiveURI string) Notification {
	return Notification{
		RunID:        report.RunID,
		URLs:         report.Total(),
		Entries:      len(report.Entries),
		Failures:     len(report.Failures),
		ReportSHA256: digest,
		ArchiveURI:   archiveURI,
	}
}

package sqlite

import "github.com/MrSnakeDoc/checkit/internal/domain"

// scanColumns lists columns shared by the scans and archive tables.
const scanColumns = `id, domain, protocol, duration_hours, start_time, last_scan_time,
	total_scans, successful_scans, failed_scans, status, details, finished,
	details_path, generated_report, validation_failures`

const archiveColumns = scanColumns + `, archived, archived_at`

type scanRow struct {
	ID                 string `db:"id"`
	Domain             string `db:"domain"`
	Protocol           string `db:"protocol"`
	DurationHours      int    `db:"duration_hours"`
	StartTime          int64  `db:"start_time"`
	LastScanTime       int64  `db:"last_scan_time"`
	TotalScans         int    `db:"total_scans"`
	SuccessfulScans    int    `db:"successful_scans"`
	FailedScans        int    `db:"failed_scans"`
	Status             string `db:"status"`
	Details            string `db:"details"`
	Finished           bool   `db:"finished"`
	DetailsPath        string `db:"details_path"`
	GeneratedReport    bool   `db:"generated_report"`
	ValidationFailures int    `db:"validation_failures"`
}

type archiveRow struct {
	scanRow
	Archived   bool  `db:"archived"`
	ArchivedAt int64 `db:"archived_at"`
}

func newScanRow(r domain.ScanRecord) scanRow {
	return scanRow{
		ID:                 r.ID,
		Domain:             r.Domain,
		Protocol:           string(r.Protocol),
		DurationHours:      r.DurationHours,
		StartTime:          toUnix(r.StartTime),
		LastScanTime:       toUnix(r.LastScanTime),
		TotalScans:         r.TotalScans,
		SuccessfulScans:    r.SuccessfulScans,
		FailedScans:        r.FailedScans,
		Status:             string(r.Status),
		Details:            r.Details,
		Finished:           r.Finished,
		DetailsPath:        r.DetailsPath,
		GeneratedReport:    r.GeneratedReport,
		ValidationFailures: r.ValidationFailures,
	}
}

func (r scanRow) toDomain() domain.ScanRecord {
	status := domain.Status(r.Status)
	if status == "" {
		status = domain.StatusUnknown
	}
	return domain.ScanRecord{
		ID:                 r.ID,
		Domain:             r.Domain,
		Protocol:           domain.Protocol(r.Protocol),
		DurationHours:      r.DurationHours,
		StartTime:          fromUnix(r.StartTime),
		LastScanTime:       fromUnix(r.LastScanTime),
		TotalScans:         r.TotalScans,
		SuccessfulScans:    r.SuccessfulScans,
		FailedScans:        r.FailedScans,
		Status:             status,
		Details:            r.Details,
		Finished:           r.Finished,
		DetailsPath:        r.DetailsPath,
		GeneratedReport:    r.GeneratedReport,
		ValidationFailures: r.ValidationFailures,
	}
}

func (r archiveRow) toDomain() domain.ArchiveRecord {
	return domain.ArchiveRecord{
		ScanRecord: r.scanRow.toDomain(),
		Archived:   r.Archived,
		ArchivedAt: fromUnix(r.ArchivedAt),
	}
}

func scanRecords(rows []scanRow) []domain.ScanRecord {
	out := make([]domain.ScanRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func archiveRecords(rows []archiveRow) []domain.ArchiveRecord {
	out := make([]domain.ArchiveRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

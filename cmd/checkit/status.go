package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/checkit/internal/app"
	"github.com/MrSnakeDoc/checkit/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

func newStatusCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show active scans, the latest archive entries, sweeps and duplicates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := a.Status(ctx, limit)
				if err != nil {
					return err
				}
				return renderStatus(st, time.Now())
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "rows per history table (default CHECKIT_ARCHIVE_LIST_LIMIT)")
	return cmd
}

func renderStatus(st app.Status, now time.Time) error {
	pterm.DefaultSection.Println("Active scans")
	if len(st.Active) == 0 {
		pterm.Info.Println("No active scans")
	} else if err := renderTable(activeRows(st.Active, now)); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Archive")
	if err := renderTable(archiveRows(st.Archive)); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Sweeps")
	if err := renderSweeps(st.Sweeps); err != nil {
		return err
	}
	if st.Shared != nil {
		pterm.Info.Printfln("last sweep published to redis finished at %s", st.Shared.FinishedAt.Local().Format(timeLayout))
	}

	pterm.DefaultSection.Println("Duplicate admissions")
	return renderTable(duplicateRows(st.Duplicates))
}

func renderSweeps(sweeps []domain.SweepSummary) error {
	return renderTable(sweepRows(sweeps))
}

func renderTable(data pterm.TableData) error {
	if len(data) <= 1 {
		pterm.Info.Println("nothing to show")
		return nil
	}
	if err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(data).Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func activeRows(recs []domain.ScanRecord, now time.Time) pterm.TableData {
	data := pterm.TableData{{"Domain", "Status", "Uptime", "Progress", "Scans", "Started", "Last scan", "ID"}}
	for _, r := range recs {
		last := "-"
		if !r.LastScanTime.IsZero() {
			last = r.LastScanTime.Local().Format(timeLayout)
		}
		data = append(data, []string{
			r.Domain,
			string(r.Status),
			percent(r.Uptime()),
			percent(r.Progress(now)),
			fmt.Sprintf("%d/%d", r.SuccessfulScans, r.TotalScans),
			r.StartTime.Local().Format(timeLayout),
			last,
			shortID(r.ID),
		})
	}
	return data
}

func archiveRows(recs []domain.ArchiveRecord) pterm.TableData {
	data := pterm.TableData{{"Domain", "Uptime", "Scans", "Archived at", "Report", "ID"}}
	for _, r := range recs {
		published := "pending"
		if r.Archived {
			published = r.DetailsPath
		}
		data = append(data, []string{
			r.Domain,
			percent(r.Uptime()),
			fmt.Sprintf("%d/%d", r.SuccessfulScans, r.TotalScans),
			r.ArchivedAt.Local().Format(timeLayout),
			published,
			shortID(r.ID),
		})
	}
	return data
}

func sweepRows(sweeps []domain.SweepSummary) pterm.TableData {
	data := pterm.TableData{{"Finished", "Took", "Active", "Admitted", "Up", "Down", "Archived", "Evicted", "Skipped", "Errors"}}
	for _, s := range sweeps {
		data = append(data, []string{
			s.FinishedAt.Local().Format(timeLayout),
			s.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(s.Active),
			strconv.Itoa(s.Admitted),
			strconv.Itoa(s.Up),
			strconv.Itoa(s.Down),
			strconv.Itoa(s.Archived),
			strconv.Itoa(s.Evicted),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.StoreErrors),
		})
	}
	return data
}

func duplicateRows(entries []domain.DuplicateEntry) pterm.TableData {
	data := pterm.TableData{{"Domain", "Attempted", "Existing since", "Existing scans", "Existing ID"}}
	for _, e := range entries {
		data = append(data, []string{
			e.Domain,
			e.AttemptedAt.Local().Format(timeLayout),
			e.ExistingStart.Local().Format(timeLayout),
			fmt.Sprintf("%d/%d", e.Existing.Success, e.Existing.Total),
			shortID(e.ExistingID),
		})
	}
	return data
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

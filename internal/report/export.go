package report

import (
	"fmt"
	"time"

	"complaintdesk/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetSummary     = "Summary"
	sheetBranches    = "Top Branches"
	sheetComplainers = "Complainers"
)

// ExportHandler serves the same report as GET /api/report as an XLSX workbook.
func ExportHandler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := resolve(c, loc)
		if err != nil {
			return err
		}

		var f *excelize.File
		if req.branchCode != "" {
			out, err := svc.Branch(c.UserContext(), req.rng, req.branchCode)
			if err != nil {
				return err
			}
			f, err = BranchWorkbook(out, req.rng, loc)
			if err != nil {
				return apperr.AggregationFailure("build workbook", err)
			}
		} else {
			out, err := svc.Overall(c.UserContext(), req.rng)
			if err != nil {
				return err
			}
			f, err = OverallWorkbook(out, req.rng, loc)
			if err != nil {
				return apperr.AggregationFailure("build workbook", err)
			}
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			return apperr.AggregationFailure("write workbook", err)
		}

		name := fmt.Sprintf("complaint-report_%s_%s.xlsx",
			req.rng.Start.In(loc).Format(dateLayout), req.rng.End.In(loc).Format(dateLayout))
		if req.branchCode != "" {
			name = req.branchCode + "_" + name
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
		return c.Send(buf.Bytes())
	}
}

func OverallWorkbook(r *Overall, rng Range, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeSummary(f, "All branches", r.Summary, rng, loc); err != nil {
		f.Close()
		return nil, err
	}

	rows := [][]any{{"Branch code", "Branch name", "Complaints"}}
	for _, b := range r.TopBranches {
		rows = append(rows, []any{b.BranchCode, b.BranchName, b.Count})
	}
	if r.HighestPendingBranch != nil {
		p := r.HighestPendingBranch
		rows = append(rows, []any{}, []any{"Highest pending", p.BranchCode + " - " + p.BranchName, p.Pending})
	}
	if err := writeSheet(f, sheetBranches, rows); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeComplainers(f, r.FrequentComplainers); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func BranchWorkbook(r *Branch, rng Range, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeSummary(f, r.BranchCode+" - "+r.BranchName, r.Summary, rng, loc); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeComplainers(f, r.FrequentComplainers); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, scope string, s Summary, rng Range, loc *time.Location) error {
	// NewFile starts with a single "Sheet1".
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	return writeRows(f, sheetSummary, [][]any{
		{"Scope", scope},
		{"From", rng.Start.In(loc).Format(dateLayout)},
		{"To", rng.End.In(loc).Format(dateLayout)},
		{"Total complaints", s.Total},
		{"Resolved", s.Resolved},
		{"Pending", s.Pending},
		{"In progress", s.InProgress},
		{"Anonymous ratio", s.AnonymousRatio},
	})
}

func writeComplainers(f *excelize.File, complainers []Complainer) error {
	rows := [][]any{{"User id", "Name", "Complaints"}}
	for _, c := range complainers {
		rows = append(rows, []any{c.UserID, c.Name, c.Count})
	}
	return writeSheet(f, sheetComplainers, rows)
}

func writeSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

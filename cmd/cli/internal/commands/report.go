package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/casework/internal/archive"
	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/bootstrap"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/render"
	"github.com/wolfeidau/casework/internal/report"
)

// reportFlags select one report run.
type reportFlags struct {
	Kind    string `arg:"" help:"report kind (organization, programs, demographics, recaps)"`
	Month   string `help:"month as YYYY-MM, defaults to the current month"`
	Program string `help:"program name, required for program reports"`
}

func (f *reportFlags) request(orgID string, svc *bootstrap.Services) (report.Request, error) {
	kind, err := models.ParseReportKind(f.Kind)
	if err != nil {
		return report.Request{}, err
	}
	month, err := parseMonth(f.Month, svc)
	if err != nil {
		return report.Request{}, err
	}

	req := report.Request{Kind: kind, OrgID: orgID, Month: month}
	if kind == models.ReportProgram {
		if f.Program == "" {
			return report.Request{}, fmt.Errorf("--program is required for program reports")
		}
		req.ProgramName = f.Program
	}
	return req, nil
}

func renderPDF(ctx context.Context, res report.Result) ([]byte, error) {
	doc, err := render.ForResult(res)
	if err != nil {
		return nil, err
	}
	return render.PDF(ctx, doc)
}

type ReportCmd struct {
	Report reportFlags `embed:""`
	Out    string      `help:"output file, defaults to the download filename" type:"path"`
	JSON   bool        `help:"print the aggregated result as JSON instead of writing a PDF"`
}

func (c *ReportCmd) Run(ctx context.Context, globals *Globals) error {
	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, orgID, err := globals.authorize(ctx, svc, auth.PermReportsGenerate)
	if err != nil {
		return skipNotReady(err)
	}

	req, err := c.Report.request(orgID, svc)
	if err != nil {
		return err
	}

	res, err := svc.Engine.Generate(ctx, req)
	if err != nil {
		return skipNotReady(err)
	}

	if c.JSON {
		enc := json.NewEncoder(globals.out())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	pdf, err := renderPDF(ctx, res)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = render.DownloadFilename(req.Kind, req.Month, req.ProgramName)
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(globals.out(), "Wrote %s (%d bytes)\n", out, len(pdf))
	return nil
}

type ArchiveCmd struct {
	Report reportFlags `embed:""`
}

func (c *ArchiveCmd) Run(ctx context.Context, globals *Globals) error {
	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, orgID, err := globals.authorize(ctx, svc, auth.PermReportsArchive)
	if err != nil {
		return skipNotReady(err)
	}

	req, err := c.Report.request(orgID, svc)
	if err != nil {
		return err
	}

	res, err := svc.Engine.Generate(ctx, req)
	if err != nil {
		return skipNotReady(err)
	}
	pdf, err := renderPDF(ctx, res)
	if err != nil {
		return err
	}

	saved, err := svc.Archive.Save(ctx, archive.SaveRequest{
		OrgID:       orgID,
		Kind:        req.Kind,
		Month:       req.Month,
		ProgramName: req.ProgramName,
		PDF:         pdf,
	})
	if err != nil {
		return err
	}

	if saved.Unchanged {
		fmt.Fprintf(globals.out(), "Unchanged %s (checksum %s)\n", saved.Path, saved.Checksum)
		return nil
	}
	fmt.Fprintf(globals.out(), "Archived %s (%d bytes, checksum %s)\n", saved.Path, saved.Size, saved.Checksum)
	return nil
}

type HistoryCmd struct {
	Kind string `arg:"" help:"report kind (organization, programs, demographics, recaps)"`
}

func (c *HistoryCmd) Run(ctx context.Context, globals *Globals) error {
	kind, err := models.ParseReportKind(c.Kind)
	if err != nil {
		return err
	}

	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, orgID, err := globals.authorize(ctx, svc, auth.PermArchiveRead)
	if err != nil {
		return skipNotReady(err)
	}

	reports, err := svc.Archive.List(ctx, orgID, kind)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(globals.out(), "No archived reports")
		return nil
	}

	w := tabwriter.NewWriter(globals.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED\tSIZE")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.Name, r.Created.Format(time.DateTime), r.Size)
	}
	return w.Flush()
}

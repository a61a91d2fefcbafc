package app

import (
	"context"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	"dwarfcopy/internal/logging"
)

type Planner struct {
	FS     FileSystem
	Logger logging.Logger
}

// Plan works out what a format needs under workingRoot for one session:
// directories to create, files that may be linked and files that must be
// copied. Link-or-copy rules take precedence over copy-only rules, and
// within each group the first rule to claim a file wins.
func (p *Planner) Plan(ctx context.Context, format domain.FormatDefinition, session domain.SessionDirectory, workingRoot string) (domain.TransferPlan, error) {
	if p.FS == nil {
		return domain.TransferPlan{}, errors.New("planner requires FS")
	}

	stop := p.Logger.Measure("Planning " + session.Name())
	defer stop()

	if _, err := p.FS.ReadDir(session.Path); err != nil {
		return domain.TransferPlan{}, appErrors.Wrap(appErrors.PlanFailure, "read session", session.Path, err)
	}

	plan := domain.NewTransferPlan()

	for _, dir := range format.Directories {
		if !filepath.IsLocal(dir) {
			plan.Warnings = append(plan.Warnings, "directory "+dir+" is outside the destination, skipped")
			continue
		}
		plan.Mkdirs = append(plan.Mkdirs, filepath.Join(workingRoot, dir))
	}

	for _, rule := range format.LinkOrCopy {
		if err := p.applyRule(ctx, &plan, rule, session, plan.Links); err != nil {
			return domain.TransferPlan{}, err
		}
	}
	for _, rule := range format.CopyOnly {
		if err := p.applyRule(ctx, &plan, rule, session, plan.Copies); err != nil {
			return domain.TransferPlan{}, err
		}
	}

	p.Logger.Verbosef("Planned %s: %d dirs, %d links, %d copies", session.Name(), len(plan.Mkdirs), len(plan.Links), len(plan.Copies))
	return plan, nil
}

func (p *Planner) applyRule(ctx context.Context, plan *domain.TransferPlan, rule domain.CopyRule, session domain.SessionDirectory, into map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	matches, err := p.FS.Glob(session.Path, rule.Source)
	if err != nil {
		return appErrors.Wrap(appErrors.PlanFailure, "match "+rule.Source, session.Path, err)
	}

	for _, match := range matches {
		if plan.Has(match) {
			continue
		}
		info, err := p.FS.Stat(match)
		if err != nil {
			return appErrors.Wrap(appErrors.PlanFailure, "stat", match, err)
		}
		if info.IsDir() {
			continue
		}

		rel := filepath.Clean(session.Render(rule.Destination, filepath.Base(match)))
		if !filepath.IsLocal(rel) {
			plan.Warnings = append(plan.Warnings, filepath.Base(match)+" -> "+rel+" is outside the destination, skipped")
			continue
		}
		if other, ok := plan.Claimant(rel); ok {
			plan.Warnings = append(plan.Warnings, filepath.Base(match)+" -> "+rel+" collides with "+filepath.Base(other)+", skipped")
			continue
		}
		into[match] = rel
	}
	return nil
}

// PlanCalibration adds the files of the chosen calibration directories to
// plan as link-or-copy entries under the format's category destinations.
// Destinations that resolve outside workingRoot are skipped with a warning.
func (p *Planner) PlanCalibration(ctx context.Context, plan *domain.TransferPlan, format domain.FormatDefinition, session domain.SessionDirectory, workingRoot string, calibration domain.Calibration) error {
	for _, cat := range domain.Categories {
		dir := calibration.Get(cat)
		if dir == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		tmpl := format.Destination(cat)
		if tmpl == "" {
			p.Logger.Verbosef("Format %s takes no %s, skipped %s", format.Name, cat, dir)
			continue
		}
		rel := filepath.Clean(session.Render(tmpl, ""))
		if !filepath.IsLocal(rel) {
			plan.Warnings = append(plan.Warnings, string(cat)+" destination "+rel+" is outside the session directory, skipped")
			continue
		}

		entries, err := p.FS.ReadDir(dir)
		if err != nil {
			return appErrors.Wrap(appErrors.PlanFailure, "read "+string(cat), dir, err)
		}

		destDir := filepath.Join(workingRoot, rel)
		if !containsString(plan.Mkdirs, destDir) {
			plan.Mkdirs = append(plan.Mkdirs, destDir)
		}

		added := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			src := filepath.Join(dir, entry.Name())
			if plan.Has(src) {
				continue
			}
			dest := filepath.Join(rel, entry.Name())
			if other, ok := plan.Claimant(dest); ok {
				plan.Warnings = append(plan.Warnings, entry.Name()+" -> "+dest+" collides with "+filepath.Base(other)+", skipped")
				continue
			}
			plan.Links[src] = dest
			added++
		}
		p.Logger.Verbosef("Planned %d %s from %s", added, cat, dir)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package export renders characters for download.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"adventure-server/shared/models"

	"github.com/jung-kurt/gofpdf/v2"
)

const (
	margin    = 40.0
	lineH     = 14.0
	labelW    = 110.0
	pageWidth = 595.28 // A4 in points
)

// CharacterSheetPDF renders a one-page sheet. build may be nil, in which case
// only the character's own fields are printed.
func CharacterSheetPDF(c *models.Character, build *models.Build) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(c.Name, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFillColor(245, 235, 210)
	pdf.SetDrawColor(80, 50, 30)
	pdf.SetTextColor(40, 25, 15)

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 26, tr(c.Name), "B", 1, "L", false, 0, "")
	pdf.Ln(6)

	section(pdf, "Character")
	row(pdf, tr, "Class", c.Class)
	row(pdf, tr, "Race", c.Race)
	row(pdf, tr, "Gender", c.Gender)
	row(pdf, tr, "Level", fmt.Sprint(c.Level))

	if build == nil {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, lineH, "No pre-built sheet is available for this class and race yet.", "", "L", false)
		return output(pdf)
	}

	section(pdf, "Build")
	row(pdf, tr, "Ancestry", strings.TrimSpace(build.Ancestry+" ("+build.Heritage+")"))
	row(pdf, tr, "Background", build.Background)
	row(pdf, tr, "Deity", build.Deity)
	row(pdf, tr, "Key ability", strings.ToUpper(build.KeyAbility))
	row(pdf, tr, "Languages", strings.Join(build.Languages, ", "))
	row(pdf, tr, "Hit points", fmt.Sprint(hitPoints(build)))
	row(pdf, tr, "Armor class", fmt.Sprint(build.ACTotal.ACTotal))
	row(pdf, tr, "Speed", fmt.Sprintf("%d ft", build.Attributes.Speed+build.Attributes.SpeedBonus))

	section(pdf, "Abilities")
	a := build.Abilities
	pdf.SetFont("Helvetica", "", 10)
	cellW := (pageWidth - 2*margin) / 6
	for _, ab := range []struct {
		name  string
		score int
	}{{"STR", a.Str}, {"DEX", a.Dex}, {"CON", a.Con}, {"INT", a.Int}, {"WIS", a.Wis}, {"CHA", a.Cha}} {
		pdf.CellFormat(cellW, 22, fmt.Sprintf("%s %d (%+d)", ab.name, ab.score, modifier(ab.score)), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	if len(build.Feats) > 0 {
		section(pdf, "Feats")
		for _, f := range build.Feats {
			name := f.Name
			if f.Extra != nil && *f.Extra != "" {
				name += " (" + *f.Extra + ")"
			}
			row(pdf, tr, f.Type, fmt.Sprintf("%s, level %d", name, f.Level))
		}
	}

	if len(build.Weapons) > 0 || len(build.Armor) > 0 {
		section(pdf, "Arms and armor")
		for _, w := range build.Weapons {
			row(pdf, tr, w.Display, fmt.Sprintf("%+d to hit, %s%+d %s", w.Attack, w.Die, w.DamageBonus, w.DamageType))
		}
		for _, ar := range build.Armor {
			row(pdf, tr, ar.Display, ar.Prof)
		}
	}

	if len(build.Equipment) > 0 {
		section(pdf, "Equipment")
		items := make([]string, 0, len(build.Equipment))
		for _, e := range build.Equipment {
			items = append(items, fmt.Sprintf("%s x%d", e.Name, e.Qty))
		}
		sort.Strings(items)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineH, tr(strings.Join(items, ", ")), "", "L", false)
	}

	section(pdf, "Money")
	m := build.Money
	row(pdf, tr, "Coins", fmt.Sprintf("%d pp, %d gp, %d sp, %d cp", m.PP, m.GP, m.SP, m.CP))

	return output(pdf)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 18, title, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func row(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(labelW, lineH, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, lineH, tr(value), "", "L", false)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func modifier(score int) int {
	// Floor division so 9 gives -1.
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

func hitPoints(b *models.Build) int {
	return b.Attributes.AncestryHP + b.Attributes.BonusHP +
		(b.Attributes.ClassHP+b.Attributes.BonusHPPerLevel+modifier(b.Abilities.Con))*b.Level
}

package domain

import "time"

// Domain contains core models shared across the pipeline.

// DescriptionPlaceholder stands in for a promo that renders no description.
const DescriptionPlaceholder = "No description"

// RawArticle holds the unprocessed fields of one rendered article promo.
type RawArticle struct {
	Title          string
	DateText       string
	Description    string
	HasDescription bool
	ImageURL       string
}

// DescriptionOrPlaceholder returns the description, or the placeholder when the promo had none.
func (a RawArticle) DescriptionOrPlaceholder() string {
	if !a.HasDescription {
		return DescriptionPlaceholder
	}
	return a.Description
}

// TargetMonth is the coarse month key of one window iteration.
type TargetMonth struct {
	Month  time.Month
	Window int
	// Anchor is now minus Window*30 days; only its month is compared.
	Anchor time.Time
}

// Label renders the anchor as YYYY-MM for progress logs.
func (m TargetMonth) Label() string {
	return m.Anchor.Format("2006-01")
}

// Record is one accepted, enriched article destined for the report.
type Record struct {
	Title         string `json:"title"`
	DateText      string `json:"date"`
	Description   string `json:"description"`
	ImageFilename string `json:"image_filename"`
	PhraseCount   int    `json:"phrase_count"`
	ContainsMoney bool   `json:"contains_money"`
}

// ReportColumns is the fixed column order of the report.
var ReportColumns = []string{"Title", "Date", "Description", "Image Filename", "Phrase Count", "Contains Money"}

// Values returns the record fields in ReportColumns order.
func (r Record) Values() []any {
	return []any{r.Title, r.DateText, r.Description, r.ImageFilename, r.PhraseCount, r.ContainsMoney}
}

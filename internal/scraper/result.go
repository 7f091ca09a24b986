package scraper

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/models"
)

// Assemble packages the final response document.
func Assemble(rows []models.Listing, captcha map[models.Platform]bool, trail *diag.Trail, screenshot string) *models.ScrapeResult {
	if rows == nil {
		rows = []models.Listing{}
	}
	flags := make(map[models.Platform]bool, len(captcha))
	for p, v := range captcha {
		flags[p] = v
	}
	return &models.ScrapeResult{
		OK:         true,
		Count:      len(rows),
		Rows:       rows,
		Captcha:    flags,
		Debug:      trail.Lines(),
		Screenshot: screenshot,
	}
}

// EncodeScreenshot turns JPEG bytes into a data URI.
func EncodeScreenshot(jpeg []byte) string {
	if len(jpeg) == 0 {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}

// PageURL returns the URL of result page n. Page 1 is the target itself.
func PageURL(target string, n int) string {
	if n <= 1 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "page=" + strconv.Itoa(n)
}

package scraper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/models"
)

func listing(p models.Platform, url string, pos int) models.Listing {
	return models.Listing{Platform: p, ProductURL: url, ListPosition: pos}
}

func TestAggregateKeepsFirstOccurrence(t *testing.T) {
	desktop := []models.Listing{
		listing(models.PlatformFlipkart, "https://www.flipkart.com/a/p/1", 1),
		listing(models.PlatformFlipkart, "https://www.flipkart.com/b/p/2", 2),
	}
	mobile := []models.Listing{
		listing(models.PlatformFlipkart, "https://www.flipkart.com/a/p/1", 1),
		listing(models.PlatformFlipkart, "https://www.flipkart.com/c/p/3", 2),
	}
	amazon := []models.Listing{
		listing(models.PlatformAmazon, "https://www.flipkart.com/a/p/1", 1),
	}

	rows := Aggregate(12, desktop, mobile, amazon)

	require.Len(t, rows, 4)
	assert.Equal(t, 1, rows[0].ListPosition)
	assert.Equal(t, "https://www.flipkart.com/b/p/2", rows[1].ProductURL)
	assert.Equal(t, "https://www.flipkart.com/c/p/3", rows[2].ProductURL)
	assert.Equal(t, models.PlatformAmazon, rows[3].Platform, "same url on another platform is distinct")
}

func TestCapPerPlatform(t *testing.T) {
	var rows []models.Listing
	for i := 0; i < 5; i++ {
		rows = append(rows, listing(models.PlatformAmazon, string(rune('a'+i)), i+1))
		rows = append(rows, listing(models.PlatformFlipkart, string(rune('a'+i)), i+1))
	}

	capped := CapPerPlatform(rows, 2)
	require.Len(t, capped, 4)
	assert.Equal(t, 2, capped[2].ListPosition)

	assert.Len(t, CapPerPlatform(rows, 0), 10)
}

func TestAggregateEmpty(t *testing.T) {
	rows := Aggregate(12)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestAssemble(t *testing.T) {
	trail := diag.New(true, nil)
	trail.Add("params")
	captcha := map[models.Platform]bool{models.PlatformFlipkart: true, models.PlatformAmazon: false}

	res := Assemble(nil, captcha, trail, EncodeScreenshot([]byte("jpeg")))

	assert.True(t, res.OK)
	assert.Zero(t, res.Count)
	assert.NotNil(t, res.Rows)
	assert.Len(t, res.Debug, 1)
	assert.Equal(t, "data:image/jpeg;base64,anBlZw==", res.Screenshot)

	captcha[models.PlatformAmazon] = true
	assert.False(t, res.Captcha[models.PlatformAmazon], "flags are copied")

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"count":0,"rows":[],"captcha":{"amazon":false,"flipkart":true},"debug":[`+quote(res.Debug[0])+`],"debug_screenshot":"data:image/jpeg;base64,anBlZw=="}`, string(data))
}

func TestAssembleOmitsDiagnostics(t *testing.T) {
	res := Assemble([]models.Listing{}, map[models.Platform]bool{models.PlatformFlipkart: false}, diag.New(false, nil), "")

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"count":0,"rows":[],"captcha":{"flipkart":false}}`, string(data))
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		target   string
		n        int
		expected string
	}{
		{"https://www.amazon.in/s?k=tv", 1, "https://www.amazon.in/s?k=tv"},
		{"https://www.amazon.in/s?k=tv", 2, "https://www.amazon.in/s?k=tv&page=2"},
		{"https://www.flipkart.com/mobiles", 3, "https://www.flipkart.com/mobiles?page=3"},
		{"https://www.flipkart.com/mobiles", 0, "https://www.flipkart.com/mobiles"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PageURL(tt.target, tt.n))
	}
}

func TestEncodeScreenshotEmpty(t *testing.T) {
	assert.Empty(t, EncodeScreenshot(nil))
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

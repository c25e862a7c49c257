package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/navid-fn/dupe-radar/internal/models"
)

// Expected, per-record failures. The record is dropped and the batch goes on.
var (
	ErrOwnerCitySplit = errors.New("owner/city cell does not split into two parts")
	ErrItemNameSplit  = errors.New("item name cell does not split into 1-3 parts")
	ErrEmptyAmount    = errors.New("count or cost is not a number")
)

// nonePlaceholder is what the market prints when an item has no
// primary-language label.
const nonePlaceholder = "none"

var (
	bulkOwnerSuffix = regexp.MustCompile(`\s*\*$`)
	dateRe          = regexp.MustCompile(`(?i)(\d+)/(\d+)/(\d+) (\d+):(\d+):(\d+)\s*(AM|PM)\b`)
	imageIDRe       = regexp.MustCompile(`src="[^"]*?(\d+)[^"]*?"`)

	// amountSeparators are thousands separators printed by the market.
	amountSeparators = strings.NewReplacer(".", "", ",", "", " ", "", "\u00a0", "")
)

// RawRecord is one listing row split into its raw (tag-bearing) text cells.
type RawRecord struct {
	Date      string
	OwnerCity string
	ItemTag   string
	ItemName  string
	Count     string
	Cost      string
}

// Normalizer turns raw listing rows into trades.
type Normalizer struct {
	// Location is the market's wall clock zone; listing dates carry no offset.
	Location *time.Location
}

// NewNormalizer returns a Normalizer for the given zone; nil means UTC.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc}
}

// Normalize converts a raw record into a Trade of the given kind.
//
// It returns one of ErrOwnerCitySplit, ErrItemNameSplit or ErrEmptyAmount for
// the expected kinds of broken rows. A nil Trade with a nil error means the
// row was noise (zero count or cost) and is dropped without complaint.
func (n *Normalizer) Normalize(raw RawRecord, kind models.Kind) (*models.Trade, error) {
	ownerCity := TagSplit(raw.OwnerCity)
	if len(ownerCity) != 2 {
		return nil, fmt.Errorf("%w: got %d parts", ErrOwnerCitySplit, len(ownerCity))
	}
	owner := strings.TrimSpace(bulkOwnerSuffix.ReplaceAllString(ownerCity[0], ""))
	city := ownerCity[1]

	cost, bulk, err := parseCost(raw.Cost)
	if err != nil {
		return nil, err
	}
	count, err := parseAmount(CleanText(raw.Count))
	if err != nil {
		return nil, err
	}

	baseName, modifier, err := splitItemName(raw.ItemName)
	if err != nil {
		return nil, err
	}

	if count <= 0 || cost <= 0 {
		return nil, nil
	}

	return &models.Trade{
		Date:         n.parseDate(raw.Date),
		OwnerName:    owner,
		City:         city,
		ItemBaseName: baseName,
		Modifier:     modifier,
		Count:        count,
		Cost:         cost,
		ItemID:       extractItemID(raw.ItemTag),
		Bulk:         bulk,
		Kind:         kind,
	}, nil
}

// parseCost strips the bulk marker and thousands separators.
func parseCost(text string) (int64, bool, error) {
	text = CleanText(text)
	bulk := strings.Contains(text, "*")
	text = strings.ReplaceAll(text, "*", "")
	text = amountSeparators.Replace(text)

	cost, err := parseAmount(text)
	return cost, bulk, err
}

func parseAmount(text string) (int64, error) {
	if !isDigits(text) {
		return 0, fmt.Errorf("%w: %q", ErrEmptyAmount, text)
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", text, err)
	}
	return v, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// splitItemName resolves the dual-language item cell into base name and modifier.
//
//	["Baby Kookaburra Ocarina", "Окарина Детеныша Кукабарры", "+63"] -> "Baby Kookaburra Ocarina", "+63"
//	["None", "Тиара Снежной Королевы"]                              -> "Тиара Снежной Королевы", ""
func splitItemName(text string) (string, string, error) {
	parts := TagSplit(text)

	var primary, alternate, modifier string
	switch len(parts) {
	case 1:
		primary, alternate = parts[0], parts[0]
	case 2:
		primary, alternate = parts[0], parts[1]
	case 3:
		primary, alternate, modifier = parts[0], parts[1], parts[2]
	default:
		return "", "", fmt.Errorf("%w: got %d parts", ErrItemNameSplit, len(parts))
	}

	if strings.ToLower(primary) == nonePlaceholder && alternate != "" {
		primary = alternate
	}
	return primary, modifier, nil
}

// parseDate reads "month/day/year hour:minute:second AM|PM". Anything else is
// a nil date, which is still valid data.
func (n *Normalizer) parseDate(text string) *time.Time {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	nums := make([]int, 6)
	for i := range nums {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return nil
		}
		nums[i] = v
	}
	month, day, year, hour, minute, second := nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]

	if hour < 1 || hour > 12 {
		return nil
	}
	switch strings.ToUpper(m[7]) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || minute > 59 || second > 59 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, n.Location)
	return &t
}

// extractItemID pulls the catalog id out of the item image reference.
func extractItemID(tag string) *int64 {
	m := imageIDRe.FindStringSubmatch(tag)
	if m == nil {
		return nil
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

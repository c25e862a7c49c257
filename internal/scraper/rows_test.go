package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `<html><body>
<table>
<tr class="list00"><td>Date</td><td>Owner</td><td></td><td>Item</td><td></td><td>Count</td><td></td><td>Cost</td></tr>
<tr class="list01"><td>12/31/2023 11:15:07 PM</td><td>Gremlin<br/>Giran</td><td><img src="/img/items/1234.png"></td><td>Soul Crystal<br>Кристалл Души</td><td></td><td> 3 </td><td></td><td>1 500</td></tr>
<tr class="list02"><td>1/1/2024 1:00:00 AM</td><td>Goblin *<br/>Aden</td><td></td><td>None<br>Тиара Снежной Королевы</td><td>x</td><td>1</td><td>y</td><td>700*</td></tr>
</table>
</body></html>`

func TestParseRows(t *testing.T) {
	rows, malformed := ParseRows(listingPage)

	assert.Empty(t, malformed)
	require.Len(t, rows, 2)

	first := rows[0].Record
	assert.Equal(t, "12/31/2023 11:15:07 PM", first.Date)
	assert.Equal(t, "Gremlin<br/>Giran", first.OwnerCity)
	assert.Equal(t, `<img src="/img/items/1234.png">`, first.ItemTag)
	assert.Equal(t, "Soul Crystal<br>Кристалл Души", first.ItemName)
	assert.Equal(t, "3", first.Count)
	assert.Equal(t, "1 500", first.Cost)
	assert.Contains(t, rows[0].Payload, "list01")

	assert.Equal(t, "700*", rows[1].Record.Cost)
}

func TestParseRowsSkipsHeaderAndShortRows(t *testing.T) {
	page := `<tr class="list00"><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td><td>f</td><td>g</td><td>h</td></tr>
<tr><td>only</td><td>two</td></tr>`

	rows, malformed := ParseRows(page)
	assert.Empty(t, rows)
	assert.Empty(t, malformed)
}

func TestTagSplit(t *testing.T) {
	assert.Equal(t, []string{"Gremlin *", "Giran"}, TagSplit("Gremlin *<br/>Giran"))
	assert.Equal(t, []string{"a", "b"}, TagSplit("<b> a </b><br>\n<i>b</i>"))
	assert.Nil(t, TagSplit("<br/>"))
	assert.Nil(t, TagSplit(""))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Tom & Jerry", CleanText("  Tom &amp;\n\tJerry "))
	assert.Equal(t, "1 500", CleanText("1&nbsp;500"))
	assert.Empty(t, CleanText(" \n "))
}

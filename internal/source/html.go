package source

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// OrderRows returns the cell texts of every table row in the page except the
// first, which is the header of the orders table.
func OrderRows(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse orders html: %w", err)
	}
	return rowsOf(doc.Find("tr")), nil
}

// PositionRows returns the body rows of the first table in the page. A page
// without a table has no positions.
func PositionRows(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse positions html: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, nil
	}
	return rowsOf(table.Find("tr")), nil
}

func rowsOf(rows *goquery.Selection) [][]string {
	var out [][]string
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		values := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			values = append(values, strings.TrimSpace(cell.Text()))
		})
		out = append(out, values)
	})
	return out
}

package render

// Page geometry in millimetres for A4 portrait.
const (
	PageWidth    = 210.0
	PageHeight   = 297.0
	MarginLeft   = 20.0
	MarginTop    = 20.0
	MarginBottom = 20.0
	TitleY       = 20.0
	ContentY     = 40.0
	LineAdvance  = 10.0
)

// Placement is one positioned run of text.
type Placement struct {
	Page     int
	X        float64
	Y        float64
	Size     float64
	Text     string
	Centered bool
}

// Layout positions every line of doc. The cursor starts at ContentY below a
// centered title, advances LineAdvance per line and an extra LineAdvance after each
// section. When the cursor passes the bottom margin the text continues at MarginTop
// on a new page.
func Layout(doc Document) []Placement {
	bottom := PageHeight - MarginBottom
	page := 1
	y := ContentY

	placements := []Placement{{Page: 1, X: PageWidth / 2, Y: TitleY, Size: TitleSize, Text: doc.Title, Centered: true}}

	place := func(text string, indent, size float64) {
		if y > bottom {
			page++
			y = MarginTop
		}
		placements = append(placements, Placement{Page: page, X: MarginLeft + indent, Y: y, Size: size, Text: text})
		y += LineAdvance
	}

	for _, s := range doc.Sections {
		place(s.Header, 0, HeaderSize)
		for _, l := range s.Lines {
			size := l.Size
			if size == 0 {
				size = LineSize
			}
			place(l.Text, l.Indent, size)
		}
		y += LineAdvance
	}

	for _, f := range doc.Footer {
		place(f, 0, LineSize)
	}

	return placements
}

// Pages returns how many pages a layout spans.
func Pages(placements []Placement) int {
	pages := 0
	for _, p := range placements {
		pages = max(pages, p.Page)
	}
	return pages
}

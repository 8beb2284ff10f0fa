// Package calendar renders a materialized week as a PNG.
package calendar

import (
	"bytes"
	"image/color"
	"strconv"
	"sync"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type fontStyle string

const (
	fontRegular fontStyle = "regular"
	fontMedium  fontStyle = "medium"
	fontBold    fontStyle = "bold"
)

const (
	imageWidth        = 1400
	imageHeight       = 900
	headerHeight      = 100
	leftLabelsWidth   = 80
	legendWidth       = 120
	dayPaddingX       = 8
	minBlockHeight    = 8.0
	blockBorderRadius = 6.0
	shadowOffset      = 3.0
	hourPaddingTop    = 1
	hourPaddingBot    = 1
	defaultMinHour    = 8
	defaultMaxHour    = 20
)

const (
	titleFontSize      = 25.0
	dayFontSize        = 24.0
	hourLabelFontSize  = 18.0
	blockFontSize      = 15.0
	legendItemFontSize = 12.0
)

var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	recurringColor  = color.RGBA{133, 193, 85, 220}
	overriddenColor = color.RGBA{255, 196, 92, 230}
	oneOffColor     = color.RGBA{120, 170, 235, 230}
	blockTextColor  = color.RGBA{20, 24, 28, 230}
	shadowColor     = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

var fontFiles = map[fontStyle][]byte{
	fontRegular: goregular.TTF,
	fontMedium:  gomedium.TTF,
	fontBold:    gobold.TTF,
}

var (
	fontsMu     sync.Mutex
	parsedFonts = make(map[fontStyle]*opentype.Font)
)

// setFont selects a face of the given size, falling back to basicfont.
func setFont(dc *gg.Context, size float64, style fontStyle) {
	fontsMu.Lock()
	f, ok := parsedFonts[style]
	if !ok {
		parsed, err := opentype.Parse(fontFiles[style])
		if err == nil {
			parsedFonts[style] = parsed
			f = parsed
		}
	}
	fontsMu.Unlock()

	if f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

type hourRange struct {
	start int
	end   int
	total int
}

// RenderWeek draws the week's occurrences. now marks today and the current
// time when it falls inside the week.
func RenderWeek(week schedule.Week, now time.Time) ([]byte, error) {
	today := schedule.DateOnly(now)
	highlightToday := !today.Before(week.Start) && !today.After(week.End())

	hours := hourRangeOf(week)
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / schedule.DaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week)
	drawHourLabels(dc, hours, cellHeight)
	for i, day := range week.Days {
		x := float64(leftLabelsWidth + i*dayWidth)
		y := float64(headerHeight)
		isToday := highlightToday && day.Date.Equal(today)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, i, isToday)
		drawDayHeader(dc, day.Date, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, occ := range day.Occurrences {
			drawOccurrence(dc, occ, x, y, dayWidth, hours, cellHeight)
		}
	}
	if highlightToday {
		drawCurrentTimeLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// hourRangeOf fits the grid to the week's earliest start and latest end.
func hourRangeOf(week schedule.Week) hourRange {
	minHour, maxHour := 24, 0
	for _, day := range week.Days {
		for _, occ := range day.Occurrences {
			endH := occ.EndTime.Hour()
			if occ.EndTime.Minute() > 0 {
				endH++
			}
			minHour = min(minHour, occ.StartTime.Hour())
			maxHour = max(maxHour, endH)
		}
	}
	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	start := max(minHour-hourPaddingTop, 0)
	end := min(maxHour+hourPaddingBot, 24)
	return hourRange{start: start, end: end, total: end - start}
}

func drawHeader(dc *gg.Context, week schedule.Week) {
	start, end := week.Start, week.End()
	title := start.Format("January 2006")
	if start.Month() != end.Month() {
		title = start.Format("January") + " - " + end.Format("January 2006")
	}

	setFont(dc, titleFontSize, fontBold)
	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, w/2+10, float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	setFont(dc, hourLabelFontSize, fontMedium)
	dc.SetColor(hourLabelColor)

	for i := 0; i < hours.total; i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(formatHour(hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date time.Time, x, y float64, dayWidth int) {
	setFont(dc, dayFontSize, fontBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("Jan 2"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(date.Format("Mon"), x+float64(dayWidth)/2, y, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for i := 0; i <= hours.total; i++ {
		hy := y + float64(i)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func drawOccurrence(dc *gg.Context, occ model.ResolvedInstance, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	startHour := float64(occ.StartTime) / 60
	endHour := float64(occ.EndTime) / 60

	top := y + (startHour-float64(hours.start))*cellHeight
	height := max((endHour-startHour)*cellHeight, minBlockHeight)
	width := float64(dayWidth) - float64(dayPaddingX*2)
	fill := occurrenceColor(occ)

	dc.SetColor(shadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, top+2+shadowOffset, width, height-4, blockBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, top+2, width, height-4, blockBorderRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, top+2, width, height-4, blockBorderRadius)
	dc.Stroke()

	setFont(dc, blockFontSize, fontMedium)
	dc.SetColor(blockTextColor)
	txtX := x + dayPaddingX + 8
	txtY := top + 18
	dc.DrawStringAnchored(occ.StartTime.String()+" "+truncate(occ.Name, 14), txtX, txtY, 0, 0)

	if height > 40 && occ.LocationName != "" {
		setFont(dc, blockFontSize-2, fontRegular)
		dc.DrawStringAnchored(truncate(occ.LocationName, 18), txtX, txtY+16, 0, 0)
	}
}

func occurrenceColor(occ model.ResolvedInstance) color.RGBA {
	switch {
	case occ.Overridden:
		return overriddenColor
	case !occ.IsRecurring:
		return oneOffColor
	default:
		return recurringColor
	}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := float64(now.Hour()) + float64(now.Minute())/60
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	lineY := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2)
	dc.DrawLine(float64(leftLabelsWidth), lineY, float64(leftLabelsWidth+schedule.DaysInWeek*dayWidth), lineY)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Weekly", recurringColor},
		{"Changed", overriddenColor},
		{"One-off", oneOffColor},
	}

	const boxW, boxH = 20.0, 14.0
	liX := float64(leftLabelsWidth + schedule.DaysInWeek*dayWidth + 10)
	liY := float64(imageHeight) - 78

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		setFont(dc, legendItemFontSize, fontRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, liX+boxW+8, liY+boxH/2+1, 0, 0.2)
		liY += boxH + 14
	}
}

func formatHour(h int) string {
	if h < 10 {
		return "0" + strconv.Itoa(h) + ":00"
	}
	return strconv.Itoa(h) + ":00"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

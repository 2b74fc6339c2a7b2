package handlers

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Константы размеров и отступов
const (
	imageWidth      = 1400
	imageHeight     = 900
	headerHeight    = 80
	leftLabelsWidth = 70
	dayPaddingX     = 6
	minSlotHeight   = 14.0
	totalDays       = 7
	defaultMinHour  = 8
	defaultMaxHour  = 18
)

// Цветовая схема
var (
	bgColor         = color.RGBA{245, 246, 248, 255}
	textColor       = color.RGBA{80, 85, 90, 220}
	hourLabelColor  = color.RGBA{110, 115, 120, 200}
	hourLineColor   = color.NRGBA{200, 200, 200, 255}
	todayBgColor    = color.NRGBA{255, 99, 71, 40}
	evenDayColor    = color.NRGBA{240, 240, 240, 255}
	oddDayColor     = color.NRGBA{228, 228, 228, 255}
	lessonColor     = color.RGBA{133, 193, 85, 230}  // занятие с маячками
	noBeaconColor   = color.RGBA{158, 158, 158, 210} // маячков нет, автоотметка не пройдёт
	lessonTextColor = color.RGBA{20, 24, 28, 255}
)

// GenerateWeekImage рисует расписание ближайших 7 дней начиная с сегодня.
// Шрифт - basicfont: для подписи времени и обрезанного названия хватает,
// а бинарь не тащит вшитые ttf.
func GenerateWeekImage(lessons []*model.Lesson) ([]byte, error) {
	now := time.Now()
	weekStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	minHour, maxHour := hourRange(lessons)
	totalHours := maxHour - minHour + 1

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(bgColor)
	dc.Clear()

	dayWidth := float64(imageWidth-leftLabelsWidth) / totalDays
	gridHeight := float64(imageHeight - headerHeight)
	hourHeight := gridHeight / float64(totalHours)

	// Колонки дней и заголовки
	for day := 0; day < totalDays; day++ {
		x := float64(leftLabelsWidth) + float64(day)*dayWidth
		date := weekStart.AddDate(0, 0, day)

		if day%2 == 0 {
			dc.SetColor(evenDayColor)
		} else {
			dc.SetColor(oddDayColor)
		}
		dc.DrawRectangle(x, headerHeight, dayWidth, gridHeight)
		dc.Fill()

		// Первая колонка - сегодня, подсвечиваем
		if day == 0 {
			dc.SetColor(todayBgColor)
			dc.DrawRectangle(x, headerHeight, dayWidth, gridHeight)
			dc.Fill()
		}

		dc.SetColor(textColor)
		label := fmt.Sprintf("%s %s", weekdayShort(date.Weekday()), date.Format("02.01"))
		dc.DrawStringAnchored(label, x+dayWidth/2, headerHeight/2, 0.5, 0.5)
	}

	// Часовые линии и подписи
	for hour := 0; hour <= totalHours; hour++ {
		y := float64(headerHeight) + float64(hour)*hourHeight

		dc.SetColor(hourLineColor)
		dc.SetLineWidth(1)
		dc.DrawLine(leftLabelsWidth, y, imageWidth, y)
		dc.Stroke()

		if hour < totalHours {
			dc.SetColor(hourLabelColor)
			dc.DrawStringAnchored(fmt.Sprintf("%02d:00", minHour+hour), leftLabelsWidth/2, y+hourHeight/2, 0.5, 0.5)
		}
	}

	// Блоки занятий: высота фиксирована по часу занятия, длительность
	// API не отдаёт
	for _, lesson := range lessons {
		day := int(lesson.StartTime.Sub(weekStart).Hours() / 24)
		if day < 0 || day >= totalDays {
			continue
		}
		hour := lesson.StartTime.Hour()
		if hour < minHour || hour > maxHour {
			continue
		}

		x := float64(leftLabelsWidth) + float64(day)*dayWidth + dayPaddingX
		y := float64(headerHeight) + float64(hour-minHour)*hourHeight +
			float64(lesson.StartTime.Minute())/60*hourHeight
		h := hourHeight
		if h < minSlotHeight {
			h = minSlotHeight
		}

		if len(lesson.Beacons) > 0 {
			dc.SetColor(lessonColor)
		} else {
			dc.SetColor(noBeaconColor)
		}
		dc.DrawRoundedRectangle(x, y, dayWidth-2*dayPaddingX, h-2, 5)
		dc.Fill()

		dc.SetColor(lessonTextColor)
		title := lesson.Title
		maxChars := int((dayWidth - 3*dayPaddingX) / 7) // ширина глифа basicfont
		if runes := []rune(title); len(runes) > maxChars && maxChars > 3 {
			title = string(runes[:maxChars-3]) + "..."
		}
		dc.DrawString(lesson.StartTime.Format("15:04"), x+4, y+14)
		dc.DrawString(title, x+4, y+28)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode week image: %w", err)
	}
	return buf.Bytes(), nil
}

// hourRange подбирает диапазон часов под занятия недели
func hourRange(lessons []*model.Lesson) (int, int) {
	minHour, maxHour := defaultMinHour, defaultMaxHour
	for _, lesson := range lessons {
		h := lesson.StartTime.Hour()
		if h < minHour {
			minHour = h
		}
		if h > maxHour {
			maxHour = h
		}
	}
	return minHour, maxHour
}

// weekdayShort basicfont не умеет кириллицу, поэтому подписи дней латиницей
func weekdayShort(day time.Weekday) string {
	switch day {
	case time.Monday:
		return "Mon"
	case time.Tuesday:
		return "Tue"
	case time.Wednesday:
		return "Wed"
	case time.Thursday:
		return "Thu"
	case time.Friday:
		return "Fri"
	case time.Saturday:
		return "Sat"
	default:
		return "Sun"
	}
}

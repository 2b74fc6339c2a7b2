package handlers

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/checkin_bot/internal/model"
	"github.com/google/uuid"
)

func TestCommandArg(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"/schedule", ""},
		{"/schedule ivan", "ivan"},
		{"/schedule   ivan  ", "ivan"},
		{"/delaccount два слова", "два слова"},
	}
	for _, c := range cases {
		if got := commandArg(c.text); got != c.want {
			t.Fatalf("commandArg(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1д 2ч 3м 4с"},
		{2*time.Hour + 5*time.Second, "2ч 0м 5с"},
		{90 * time.Second, "1м 30с"},
		{5 * time.Second, "5с"},
		{-time.Minute, "0с"},
	}
	for _, c := range cases {
		if got := formatDuration(c.d); got != c.want {
			t.Fatalf("formatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestGenerateWeekImage(t *testing.T) {
	now := time.Now()
	lessons := []*model.Lesson{
		{
			Title:       "Алгоритмы и структуры данных, очень длинное название которое не влезет",
			Room:        "A-101",
			StartTime:   time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location()),
			TimetableID: 1,
			Beacons: []model.Beacon{
				{UUID: uuid.MustParse("f7826da6-4fa2-4e98-8024-bc5b71e0893e")},
			},
		},
		{
			Title:       "Физкультура",
			StartTime:   time.Date(now.Year(), now.Month(), now.Day(), 14, 0, 0, 0, now.Location()).AddDate(0, 0, 2),
			TimetableID: 2,
		},
	}

	data, err := GenerateWeekImage(lessons)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("result is not a png: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != imageWidth || bounds.Dy() != imageHeight {
		t.Fatalf("unexpected image size: %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestGenerateWeekImageEmpty(t *testing.T) {
	data, err := GenerateWeekImage(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("result is not a png: %v", err)
	}
}

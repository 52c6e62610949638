package echo_test

import (
	"strconv"
	"testing"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/test"
)

func TestParseDay(t *testing.T) {
	d, err := echo.ParseDay("2024/02/29")
	test.ErrNil(t, err, "ParseDay")
	if d.String() != "2024/02/29" || d.Compact() != "20240229" {
		t.Fatalf("unexpected forms %s %s", d, d.Compact())
	}
	if d.Next().String() != "2024/03/01" {
		t.Fatalf("unexpected next day %s", d.Next())
	}
	for _, bad := range []string{"2024-02-29", "2023/02/29", "20240229", ""} {
		if _, err := echo.ParseDay(bad); err == nil {
			t.Fatalf("expected error parsing '%s'", bad)
		}
	}
}

func TestDayOf(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	d := echo.DayOf(time.Date(2024, 1, 1, 20, 0, 0, 0, loc))
	if d.String() != "2024/01/02" {
		t.Fatalf("expected UTC day 2024/01/02, got %s", d)
	}
}

func TestDayRange(t *testing.T) {
	if _, err := echo.ParseDayRange("2024/01/02", "2024/01/01"); err == nil {
		t.Fatalf("expected error for end before start")
	}
	r, err := echo.ParseDayRange("2023/12/30", "2024/01/02")
	test.ErrNil(t, err, "ParseDayRange")
	if r.Len() != 4 {
		t.Fatalf("expected 4 days, got %d", r.Len())
	}
	var days []string
	for _, d := range r.Days() {
		days = append(days, d.String())
	}
	test.MustBe(t, []string{"2023/12/30", "2023/12/31", "2024/01/01", "2024/01/02"}, days)
	if !r.Contains(echo.MustParseDay("2023/12/31")) || r.Contains(echo.MustParseDay("2024/01/03")) {
		t.Fatalf("Contains is wrong")
	}
	if r.String() != "2023/12/30-2024/01/02" {
		t.Fatalf("unexpected String %s", r)
	}
}

func TestDayRangeBatches(t *testing.T) {
	r, err := echo.ParseDayRange("2024/01/01", "2024/01/05")
	test.ErrNil(t, err, "ParseDayRange")
	tests := []struct {
		size int
		want []string
	}{
		{size: 1, want: []string{
			"2024/01/01-2024/01/01", "2024/01/02-2024/01/02", "2024/01/03-2024/01/03",
			"2024/01/04-2024/01/04", "2024/01/05-2024/01/05"}},
		{size: 2, want: []string{"2024/01/01-2024/01/02", "2024/01/03-2024/01/04", "2024/01/05-2024/01/05"}},
		{size: 5, want: []string{"2024/01/01-2024/01/05"}},
		{size: 30, want: []string{"2024/01/01-2024/01/05"}},
	}
	for _, tst := range tests {
		windows, err := r.Batches(tst.size)
		test.ErrNil(t, err, "Batches")
		var got []string
		for _, w := range windows {
			got = append(got, w.String())
		}
		test.MustBe(t, tst.want, got, "size "+strconv.Itoa(tst.size))
	}
	if _, err := r.Batches(0); err == nil {
		t.Fatalf("expected error for batch size 0")
	}
}

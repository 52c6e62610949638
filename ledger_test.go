package echo_test

import (
	"context"
	"testing"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/mock"
	"github.com/ooi-data/rca-echo-tools/test"
)

func TestNewParams(t *testing.T) {
	p, err := echo.NewParams("cw", "POWER", "ek60")
	test.ErrNil(t, err, "NewParams")
	test.MustBe(t, echo.Params{WaveformMode: "CW", EncodeMode: "power", SonarModel: "EK60"}, p)
	for _, bad := range [][3]string{{"FM", "power", "EK60"}, {"CW", "raw", "EK60"}, {"CW", "power", ""}} {
		if _, err := echo.NewParams(bad[0], bad[1], bad[2]); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}

func TestKeys(t *testing.T) {
	r := echo.MustParseRefdes("CE04OSPS-PC01B-05-ZPLSCA102")
	if got := echo.StorePrefix(r); got != "CE04OSPS-PC01B-05-ZPLSCA102-streamed-zplsc_volume_scattering/" {
		t.Fatalf("unexpected store prefix %s", got)
	}
	if got := echo.LedgerKey(r); got != "harvest-status/CE04OSPS-PC01B-05-ZPLSCA102-streamed-zplsc_volume_scattering/" {
		t.Fatalf("unexpected ledger key %s", got)
	}
}

func TestObjectLedger(t *testing.T) {
	ctx := context.Background()
	p := echo.Params{WaveformMode: "CW", EncodeMode: "power", SonarModel: "EK60"}
	bb := echo.Params{WaveformMode: "BB", EncodeMode: "complex", SonarModel: "EK80"}
	l := echo.NewObjectLedger(mock.NewObjects(), "harvest-status/x/")

	if _, err := l.Read(ctx); err != echo.ErrNoLedger {
		t.Fatalf("expected ErrNoLedger, got %v", err)
	}
	test.ErrNil(t, l.Delete(ctx), "deleting missing ledger")

	first := echo.NewLedger(echo.DayRange{Start: echo.MustParseDay("2024/01/01"), End: echo.MustParseDay("2024/01/02")}, p)
	_, err := l.Write(ctx, first)
	test.ErrNil(t, err, "Write")
	second := echo.NewLedger(echo.DayRange{Start: echo.MustParseDay("2024/01/05"), End: echo.MustParseDay("2024/01/05")}, bb)
	final, err := l.Write(ctx, second)
	test.ErrNil(t, err, "Write")

	got, err := l.Read(ctx)
	test.ErrNil(t, err, "Read")
	test.MustBe(t, final, got)
	test.MustBe(t, echo.Ledger{"2024/01/01": p, "2024/01/02": p, "2024/01/05": bb}, got)
	days := got.Days()
	if len(days) != 3 || days[0].String() != "2024/01/01" || days[2].String() != "2024/01/05" {
		t.Fatalf("unexpected days %v", days)
	}

	test.ErrNil(t, l.Delete(ctx), "Delete")
	if _, err := l.Read(ctx); err != echo.ErrNoLedger {
		t.Fatalf("expected ErrNoLedger after delete, got %v", err)
	}
}

package echo_test

import (
	"testing"

	echo "github.com/ooi-data/rca-echo-tools"
)

func TestParseRefdes(t *testing.T) {
	tests := []struct {
		in                 string
		site, node, sensor string
		err                bool
	}{
		{in: "CE04OSPS-PC01B-05-ZPLSCA102", site: "CE04OSPS", node: "PC01B", sensor: "ZPLSCA102"},
		{in: "CE02SHBP-MJ01C-07-ZPLSCB101", site: "CE02SHBP", node: "MJ01C", sensor: "ZPLSCB101"},
		{in: "CE02SHBP-MJ01C-07-ZPLSCB10", err: true},
		{in: "CE02SHBP_MJ01C-07-ZPLSCB101", err: true},
		{in: "CE02SHBP-MJ01C_07-ZPLSCB101", err: true},
		{in: "", err: true},
	}
	for _, tst := range tests {
		t.Run(tst.in, func(t *testing.T) {
			r, err := echo.ParseRefdes(tst.in)
			if tst.err {
				if err == nil {
					t.Fatalf("expected error parsing %s", tst.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsing %s: %v", tst.in, err)
			}
			if r.Site() != tst.site || r.Node() != tst.node || r.Sensor() != tst.sensor {
				t.Fatalf("got site=%s node=%s sensor=%s", r.Site(), r.Node(), r.Sensor())
			}
			if r.String() != tst.in {
				t.Fatalf("String: %s", r)
			}
		})
	}
}

func TestDeployedRefdesParse(t *testing.T) {
	for _, s := range echo.EchoRefdesList {
		if _, err := echo.ParseRefdes(s); err != nil {
			t.Fatalf("deployed instrument %s: %v", s, err)
		}
	}
}

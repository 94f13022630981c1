package feed

import (
	"reflect"
	"testing"

	"sharkspread/internal/domain"
)

func validRowJSON(token string) string {
	return `{"token":"` + token + `","exchange1":"mexc","exchange2":"jupiter",` +
		`"price1":"1.00","price2":"1.02","spread":"+2.00%","network":"solana","limit":"10"}`
}

func TestParseRows_MixedArray(t *testing.T) {
	data := []byte(`[` +
		validRowJSON("SHARK") + `,` +
		`{"type":"ping"},` +
		validRowJSON("FIN") + `,` +
		`{"token":"PARTIAL","exchange1":"mexc"},` +
		`"not-an-object",` +
		validRowJSON("JAWS") +
		`]`)

	rows, err := ParseRows(data)
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}

	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r.Token
	}
	want := []string{"SHARK", "FIN", "JAWS"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokens = %v, want %v (order preserved)", got, want)
	}
}

func TestParseRows_SingleObject(t *testing.T) {
	rows, err := ParseRows([]byte(validRowJSON("SHARK")))
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Token != "SHARK" {
		t.Errorf("rows = %+v, want single SHARK row", rows)
	}
}

func TestParseRows_SingleControlMessage(t *testing.T) {
	rows, err := ParseRows([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %+v, want none for control message", rows)
	}
}

func TestParseRows_Garbage(t *testing.T) {
	if _, err := ParseRows([]byte(`not json at all`)); err == nil {
		t.Fatal("expected error for non-JSON input")
	}
}

func TestParseRows_EmptyArray(t *testing.T) {
	rows, err := ParseRows([]byte(`[]`))
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %+v, want empty", rows)
	}
}

func TestRowFromPoint(t *testing.T) {
	pct := 2.5
	p := &domain.SpreadPoint{
		Symbol:    "SHARK",
		DEX:       domain.VenueJupiter,
		CEXPrice:  1.00,
		DEXPrice:  1.025,
		SpreadPct: &pct,
	}

	row := RowFromPoint(p, "10")
	if row.Exchange1 != "mexc" || row.Exchange2 != "jupiter" {
		t.Errorf("exchanges = %s/%s", row.Exchange1, row.Exchange2)
	}
	if row.Network != "solana" {
		t.Errorf("network = %q, want solana", row.Network)
	}
	if row.Spread != "+2.50%" {
		t.Errorf("spread = %q, want +2.50%%", row.Spread)
	}
	if !row.complete() {
		t.Error("row from point should be complete")
	}
}

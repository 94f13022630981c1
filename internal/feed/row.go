// Package feed carries the real-time spread channel: the wire row
// shape, a broadcast hub for connected clients, and a consuming client
// with reconnect.
package feed

import (
	"encoding/json"
	"fmt"

	"sharkspread/internal/domain"
	"sharkspread/internal/spread"
)

// Row is the flat wire shape of one spread update. Every field is
// required; a message missing any of them is treated as a control or
// service message and dropped.
type Row struct {
	Token     string `json:"token"`
	Exchange1 string `json:"exchange1"` // CEX side
	Exchange2 string `json:"exchange2"` // DEX side
	Price1    string `json:"price1"`
	Price2    string `json:"price2"`
	Spread    string `json:"spread"`
	Network   string `json:"network"`
	Limit     string `json:"limit"`
}

// complete reports whether all eight required fields are present.
func (r Row) complete() bool {
	return r.Token != "" && r.Exchange1 != "" && r.Exchange2 != "" &&
		r.Price1 != "" && r.Price2 != "" && r.Spread != "" &&
		r.Network != "" && r.Limit != ""
}

// ParseRows decodes a feed message, which may be a JSON array or a
// single object, and returns exactly the entries containing all
// required fields in their original order. Control messages, partial
// rows, and non-object entries are dropped silently.
func ParseRows(data []byte) ([]Row, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		// Not an array: try a single object.
		var row Row
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("parse feed message: %w", err)
		}
		if row.complete() {
			return []Row{row}, nil
		}
		return nil, nil
	}

	rows := make([]Row, 0, len(raws))
	for _, raw := range raws {
		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		if row.complete() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// RowFromPoint flattens a sampled spread point into the wire shape.
func RowFromPoint(p *domain.SpreadPoint, limit string) Row {
	return Row{
		Token:     p.Symbol,
		Exchange1: domain.VenueMEXC.String(),
		Exchange2: p.DEX.String(),
		Price1:    spread.FormatPrice(p.CEXPrice),
		Price2:    spread.FormatPrice(p.DEXPrice),
		Spread:    spread.FormatSpread(p.SpreadPct),
		Network:   networkOf(p.DEX),
		Limit:     limit,
	}
}

func networkOf(v domain.Venue) string {
	chain, err := v.Chain()
	if err != nil {
		return ""
	}
	return chain.String()
}

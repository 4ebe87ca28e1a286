package parser

import (
	"bytes"
	"fmt"

	"github.com/gocarina/gocsv"
)

// scheduleRow is one CSV row as exported by the office systems. Column names
// vary between exports; alternate columns are coalesced after unmarshaling.
type scheduleRow struct {
	OrderNumber  string `csv:"numero_orden"`
	SupplyNumber string `csv:"suministro"`
	ClientNumber string `csv:"cliente"`
	CitizenName  string `csv:"nombre"`
	Titular      string `csv:"titular"`
	Address      string `csv:"direccion"`
	Zone         string `csv:"zona"`
	Type         string `csv:"tipo_notificacion"`
}

// ParseCSV converts a CSV export into records, applying the same zone
// normalization and empty-name policy as the PDF text parser. Batch metadata
// is not present in CSV exports; the caller synthesizes it.
func ParseCSV(data []byte) (*Result, error) {
	var rows []*scheduleRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	res := &Result{}
	for i, row := range rows {
		name := collapseSpaces(coalesce(row.CitizenName, row.Titular))
		if name == "" {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("row %d: no citizen name, record dropped", i+2))
			continue
		}

		notifType := collapseSpaces(row.Type)
		if notifType == "" {
			notifType = NotificationType
		}

		res.Records = append(res.Records, Record{
			OrderNumber:      collapseSpaces(row.OrderNumber),
			SupplyNumber:     collapseSpaces(row.SupplyNumber),
			ClientNumber:     collapseSpaces(row.ClientNumber),
			CitizenName:      name,
			Address:          collapseSpaces(row.Address),
			NotificationType: notifType,
			Zone:             NormalizeZone(collapseSpaces(row.Zone)),
		})
	}

	return res, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DetectCSV reports whether the payload looks like a CSV export rather than
// extracted PDF text.
func DetectCSV(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	line, _, _ := bytes.Cut(head, []byte("\n"))
	return bytes.Contains(line, []byte(",")) && !bytes.Contains(line, []byte("IN ORDENATIVO"))
}

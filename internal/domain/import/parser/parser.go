// Package parser recovers structured notification records from the text of
// EPEN schedule documents. The PDF export flattens a fixed-width table into
// wrapped, whitespace-delimited lines; this package reconstructs records
// across line wraps and splits the free-text tail into name and address.
package parser

import (
	"regexp"
	"strings"
)

// NotificationType is the only notification type the schedule format encodes.
const NotificationType = "IN ORDENATIVO DE INTIMACION"

// BatchMetadata is the per-document header data. Fields default to the empty
// string when their label is not found; that is not an error.
type BatchMetadata struct {
	ScheduleNumber string `json:"schedule_number"`
	ContactEmail   string `json:"contact_email"`
	BranchOffice   string `json:"branch_office"`
}

// Record is one notification recovered from the document.
type Record struct {
	OrderNumber      string `json:"order_number"`
	SupplyNumber     string `json:"supply_number"`
	ClientNumber     string `json:"client_number"`
	CitizenName      string `json:"citizen_name"`
	Address          string `json:"address"`
	NotificationType string `json:"notification_type"`
	Zone             string `json:"zone"`
}

// Result holds everything parsed from one document. Warnings record matches
// that were dropped (empty citizen name) so the importing operator can review
// them; the parser itself never fails.
type Result struct {
	Metadata BatchMetadata `json:"metadata"`
	Records  []Record      `json:"records"`
	Warnings []string      `json:"warnings,omitempty"`
}

var (
	scheduleNumberRe = regexp.MustCompile(`Nro Cronograma\s*:?\s*(\d+)`)
	contactEmailRe   = regexp.MustCompile(`Correo:\s*(\S+)`)
	branchOfficeRe   = regexp.MustCompile(`Sucursal:\s*(.*)`)

	// A record opens with the notification literal, a 7-digit order number
	// and three numeric columns (supply, a count we discard, client).
	recordStartRe = regexp.MustCompile(`^IN ORDENATIVO DE\s+(\d{7})\s+(\d+)\s+(\d+)\s+(\d+)\s*(.*)$`)

	postalCodeRe  = regexp.MustCompile(`\((\d{4})\)`)
	zoneSuffixRe  = regexp.MustCompile(`\(\d{4}\)\s*-\s*([^,]+)`)
	doubleSpaceRe = regexp.MustCompile(`\s{2,}`)
	underscoreRe  = regexp.MustCompile(`_+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	separatorRe   = regexp.MustCompile(`^[\s_-]*[_-]{2,}[\s_-]*$`)
)

// sectionLabels terminate the branch-office value when they follow it on the
// same header line.
var sectionLabels = []string{"Tipo", "Contratista", "Cliente"}

// noisePrefixes open lines that belong to the page chrome, not to a record.
var noisePrefixes = []string{
	"Fecha",
	"E.P.E.N",
	"Hoja",
	"Listado",
	"Tipo Notificacion",
	"Total Notificacio",
}

// addressKeywords lead the address portion of a tail when the column gap was
// lost. Ordered: the earliest occurrence in the tail wins.
var addressKeywords = []string{
	"PASO ",
	"AV. ",
	"AVDA. ",
	"CALLE ",
	"RUTA ",
	"CHACRA ",
	"LOTE ",
	"BARRIO ",
	"2 DE ",
}

// Parse converts the full extracted text of one schedule document into batch
// metadata and records. Malformed or unexpected text degrades to empty
// fields or zero records; Parse never returns an error.
func Parse(text string) *Result {
	res := &Result{Metadata: extractMetadata(text)}

	lines := strings.Split(text, "\n")
	var current *rawRecord

	flush := func() {
		if current == nil {
			return
		}
		emit(res, current)
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimRight(line, "\r"))

		if m := recordStartRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			current = &rawRecord{
				orderNumber:  m[1],
				supplyNumber: m[2],
				clientNumber: m[4],
				tail:         m[5],
			}
			continue
		}

		if current == nil {
			continue
		}
		if trimmed == "INTIMACION" {
			flush()
			continue
		}
		if trimmed == "" || separatorRe.MatchString(trimmed) || hasNoisePrefix(trimmed) {
			continue
		}
		current.tail += " " + trimmed
	}
	flush()

	return res
}

type rawRecord struct {
	orderNumber  string
	supplyNumber string
	clientNumber string
	tail         string
}

func emit(res *Result, raw *rawRecord) {
	tail := strings.TrimSpace(underscoreRe.ReplaceAllString(raw.tail, ""))

	name, address := splitNameAddress(tail)
	if name == "" {
		res.Warnings = append(res.Warnings,
			"order "+raw.orderNumber+": no citizen name recovered, record dropped")
		return
	}

	res.Records = append(res.Records, Record{
		OrderNumber:      raw.orderNumber,
		SupplyNumber:     raw.supplyNumber,
		ClientNumber:     raw.clientNumber,
		CitizenName:      name,
		Address:          address,
		NotificationType: NotificationType,
		Zone:             extractZone(address),
	})
}

// splitNameAddress separates the citizen name from the address inside a
// reconstructed tail. The postal code token "(DDDD)" anchors the boundary
// region; before it, the column gap (a run of two or more spaces) marks the
// split. Without a gap an address keyword decides, and without any anchor
// the whole tail is the name.
func splitNameAddress(tail string) (name, address string) {
	if tail == "" {
		return "", ""
	}

	if loc := postalCodeRe.FindStringIndex(tail); loc != nil {
		before := tail[:loc[0]]
		after := tail[loc[0]:]

		if gap := doubleSpaceRe.FindStringIndex(before); gap != nil {
			name = before[:gap[0]]
			address = joinAddress(before[gap[1]:], after)
		} else if idx := earliestKeyword(before); idx >= 0 {
			name = before[:idx]
			address = joinAddress(before[idx:], after)
		} else {
			name = before
			address = after
		}
	} else if gap := doubleSpaceRe.FindStringIndex(tail); gap != nil {
		name = tail[:gap[0]]
		address = tail[gap[1]:]
	} else {
		name = tail
	}

	return collapseSpaces(name), collapseSpaces(address)
}

func joinAddress(street, suffix string) string {
	street = strings.TrimSpace(street)
	if street == "" {
		return suffix
	}
	return street + " " + suffix
}

// earliestKeyword returns the index of the first address keyword found in s,
// or -1. The keyword table is ordered but position wins: the match closest
// to the start of the string decides the split.
func earliestKeyword(s string) int {
	best := -1
	for _, kw := range addressKeywords {
		if idx := strings.Index(s, kw); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

// extractZone pulls the locality that follows "(DDDD) - " in an address, up
// to the next comma, and normalizes it against the known zone table.
func extractZone(address string) string {
	m := zoneSuffixRe.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return NormalizeZone(strings.TrimSpace(m[1]))
}

func extractMetadata(text string) BatchMetadata {
	var meta BatchMetadata

	if m := scheduleNumberRe.FindStringSubmatch(text); m != nil {
		meta.ScheduleNumber = m[1]
	}
	if m := contactEmailRe.FindStringSubmatch(text); m != nil {
		meta.ContactEmail = m[1]
	}
	if m := branchOfficeRe.FindStringSubmatch(text); m != nil {
		meta.BranchOffice = cleanBranchOffice(m[1])
	}

	return meta
}

// cleanBranchOffice cuts the raw "Sucursal:" value at the column gap or at
// the next section label, whichever comes first.
func cleanBranchOffice(raw string) string {
	raw = strings.TrimRight(raw, "\r")

	cut := len(raw)
	if gap := doubleSpaceRe.FindStringIndex(raw); gap != nil && gap[0] < cut {
		cut = gap[0]
	}
	for _, label := range sectionLabels {
		if idx := strings.Index(raw, label); idx >= 0 && idx < cut {
			cut = idx
		}
	}

	return strings.TrimSpace(raw[:cut])
}

func hasNoisePrefix(line string) bool {
	for _, p := range noisePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

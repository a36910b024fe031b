package uploads

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
)

// ParsedRow is one meter value extracted from receipt text.
type ParsedRow struct {
	NozzleNumber int
	Value        decimal.Decimal
}

// ParsedReceipt is the structured result of OCR text extraction.
type ParsedReceipt struct {
	PumpSerial string
	Rows       []ParsedRow
}

// Pump consoles print serials and per-nozzle totalizers in a handful of
// layouts; the patterns below cover the common ones:
//
//	PUMP: TX-4410            NOZZLE 1: 125030.250
//	PUMP SERIAL TX4410       NOZ 2 : 98001.5
//	S/N: TX-4410             N1 125030.250
var (
	serialPattern = regexp.MustCompile(`(?i)(?:pump(?:\s+serial)?|serial(?:\s+no)?|s/n)\s*[:#-]?\s*([A-Z0-9][A-Z0-9/-]*)`)
	nozzlePattern = regexp.MustCompile(`(?i)(?:nozzle|noz|n)\s*#?\s*(\d{1,2})\s*[:=-]?\s*(\d{1,9}(?:\.\d{1,3})?)`)
)

// ParseReceipt extracts a pump serial and nozzle totalizer rows from OCR
// text. Rows with unparseable numbers are skipped; an empty result is an
// error.
func ParseReceipt(text string) (*ParsedReceipt, error) {
	out := &ParsedReceipt{}
	for _, line := range strings.Split(text, "\n") {
		if out.PumpSerial == "" {
			if m := serialPattern.FindStringSubmatch(line); m != nil {
				out.PumpSerial = strings.ToUpper(m[1])
			}
		}
		for _, m := range nozzlePattern.FindAllStringSubmatch(line, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				continue
			}
			v, err := decimal.NewFromString(m[2])
			if err != nil || v.IsNegative() {
				continue
			}
			out.Rows = append(out.Rows, ParsedRow{NozzleNumber: n, Value: v})
		}
	}
	if out.PumpSerial == "" && len(out.Rows) == 0 {
		return nil, apperr.New(apperr.KindValidation, "no pump serial or nozzle readings found in receipt text")
	}
	return out, nil
}

// DefaultFuelFor maps a nozzle number to its conventional fuel: 1-2 petrol,
// 3-4 diesel. Beyond four the station has a custom layout and must create
// the nozzle explicitly, so petrol is only a placeholder.
func DefaultFuelFor(nozzleNumber int) string {
	if nozzleNumber == 3 || nozzleNumber == 4 {
		return "diesel"
	}
	return "petrol"
}
